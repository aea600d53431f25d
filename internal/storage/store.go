package storage

import (
	"time"

	"github.com/user/contestcal/internal/apperr"
)

// Store handles contest, booking and preference database operations.
type Store struct {
	db  *Database
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for fetched_at, created_at and the
// upcoming window.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a new store.
func NewStore(db *Database, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func storageErr(op string, err error) error {
	return apperr.Wrap(apperr.StorageFailure, op, err)
}
