package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// ErrNotWatchable is returned by Watch for sources that are not local files.
var ErrNotWatchable = errors.New("catalog source is not a local file")

type snapshot struct {
	products   []Product
	index      map[int]int
	categories []string
	loadedAt   time.Time
}

func newSnapshot(products []Product, at time.Time) *snapshot {
	s := &snapshot{
		products: products,
		index:    make(map[int]int, len(products)),
		loadedAt: at,
	}
	seen := make(map[string]struct{})
	for i, p := range products {
		s.index[p.ID] = i
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			s.categories = append(s.categories, p.Category)
		}
	}
	return s
}

// Store holds the current product snapshot. Reads never block; a reload
// swaps the whole snapshot at once.
type Store struct {
	source   string
	client   *http.Client
	debounce time.Duration
	logger   *slog.Logger

	snap atomic.Pointer[snapshot]
}

// NewStore creates an empty Store for source. Call Reload before serving.
func NewStore(source string, client *http.Client) *Store {
	s := &Store{
		source:   source,
		client:   client,
		debounce: defaultDebounce,
		logger:   slog.Default(),
	}
	s.snap.Store(newSnapshot(nil, time.Time{}))
	return s
}

// NewStaticStore returns a Store serving a fixed product list.
func NewStaticStore(products []Product) *Store {
	s := NewStore("", nil)
	s.snap.Store(newSnapshot(products, time.Now()))
	return s
}

// Source returns the configured product source.
func (s *Store) Source() string { return s.source }

// Reload re-reads the source. On error the previous snapshot is kept.
func (s *Store) Reload(ctx context.Context) error {
	products, err := Load(ctx, s.source, s.client)
	if err != nil {
		return err
	}
	s.snap.Store(newSnapshot(products, time.Now()))
	return nil
}

// Products returns every product in source order. Callers must not mutate it.
func (s *Store) Products() []Product {
	return s.snap.Load().products
}

// Categories returns the distinct non-empty categories in first-seen order.
func (s *Store) Categories() []string {
	return s.snap.Load().categories
}

// LoadedAt returns when the current snapshot was loaded.
func (s *Store) LoadedAt() time.Time {
	return s.snap.Load().loadedAt
}

// Get returns the product with the given id.
func (s *Store) Get(id int) (Product, bool) {
	snap := s.snap.Load()
	i, ok := snap.index[id]
	if !ok {
		return Product{}, false
	}
	return snap.products[i], true
}

// Lookup returns the products whose ids are in ids, in catalog order.
// Unknown ids are skipped.
func (s *Store) Lookup(ids []int) []Product {
	snap := s.snap.Load()
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := snap.index[id]; ok {
			want[id] = struct{}{}
		}
	}
	out := make([]Product, 0, len(want))
	for _, p := range snap.products {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Watch reloads the catalog whenever the local source file changes, until
// ctx is cancelled. The parent directory is watched so editors that replace
// the file on save are still picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.source == "" || IsRemote(s.source) {
		return ErrNotWatchable
	}

	target, err := filepath.Abs(s.source)
	if err != nil {
		return fmt.Errorf("resolving catalog path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("catalog watcher error", "error", err)

		case <-fire:
			fire = nil
			if err := s.Reload(ctx); err != nil {
				s.logger.Warn("catalog reload failed, keeping previous snapshot", "source", s.source, "error", err)
				continue
			}
			s.logger.Info("catalog reloaded", "source", s.source, "products", len(s.Products()))
		}
	}
}
