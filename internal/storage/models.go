package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SelectionRecord is the raw stored selection for one session.
type SelectionRecord struct {
	SessionID string
	IDs       string // JSON array of product ids stored as text
	UpdatedAt time.Time
}
