package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/glowkit/internal/storage"
)

// Backend is the durable key/value the selection lives in.
// Implemented by storage.Store.
type Backend interface {
	GetSelection(ctx context.Context, sessionID string) (storage.SelectionRecord, error)
	PutSelection(ctx context.Context, sessionID, idsJSON string) error
	DeleteSelection(ctx context.Context, sessionID string) error
	CountSelections(ctx context.Context) (int, error)
}

// Store reads and writes one session's selection as a JSON array under a
// single key. Writes always replace the whole value; concurrent writers for
// the same session are not coordinated and the last write wins.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore creates a Store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, logger: slog.Default()}
}

// Get returns the selection for sessionID. A missing, unreadable or corrupt
// stored value yields an empty set; Get never fails.
func (s *Store) Get(ctx context.Context, sessionID string) Set {
	rec, err := s.backend.GetSelection(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return Set{}
	}
	if err != nil {
		s.logger.Warn("reading selection failed, using empty selection", "session", sessionID, "error", err)
		return Set{}
	}

	var set Set
	if err := json.Unmarshal([]byte(rec.IDs), &set); err != nil {
		s.logger.Warn("stored selection is corrupt, using empty selection", "session", sessionID, "error", err)
		return Set{}
	}
	return set
}

// Set overwrites the stored selection for sessionID.
func (s *Store) Set(ctx context.Context, sessionID string, set Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding selection: %w", err)
	}
	if err := s.backend.PutSelection(ctx, sessionID, string(data)); err != nil {
		return fmt.Errorf("writing selection: %w", err)
	}
	return nil
}

// Toggle flips id in the session's selection and persists the result.
// It returns the new set and whether id is now selected.
func (s *Store) Toggle(ctx context.Context, sessionID string, id int) (Set, bool, error) {
	next, selected := s.Get(ctx, sessionID).Toggle(id)
	if err := s.Set(ctx, sessionID, next); err != nil {
		return Set{}, false, err
	}
	return next, selected, nil
}

// Clear removes the session's stored selection. Clearing a session that
// has none is not an error.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	err := s.backend.DeleteSelection(ctx, sessionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("clearing selection: %w", err)
	}
	return nil
}

// Count returns how many sessions have a stored selection.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.backend.CountSelections(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting selections: %w", err)
	}
	return n, nil
}
