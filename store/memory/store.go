// Package memory provides an in-process account.Store.
//
// Each record is guarded by its own mutex, so Update calls for different
// users run in parallel while calls for the same user are serialized.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/credgate/account"
)

type entry struct {
	mu  sync.Mutex
	rec account.Record
}

// Store is a map-backed account.Store. The zero value is not usable; call New.
type Store struct {
	mu      sync.RWMutex
	records map[string]*entry
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *Store) lookup(email string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[email]
	return e, ok
}

// FindByEmail returns a copy of the stored record.
func (s *Store) FindByEmail(ctx context.Context, email string) (account.Record, error) {
	if err := ctx.Err(); err != nil {
		return account.Record{}, err
	}
	e, ok := s.lookup(email)
	if !ok {
		return account.Record{}, account.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

// ExistsByEmail reports whether a record is stored for email.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.lookup(email)
	return ok, nil
}

// Create inserts rec and fails with account.ErrDuplicateEmail when the
// email is taken.
func (s *Store) Create(ctx context.Context, rec account.Record) (account.Record, error) {
	if err := ctx.Err(); err != nil {
		return account.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Email]; ok {
		return account.Record{}, account.ErrDuplicateEmail
	}
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[rec.Email] = &entry{rec: rec.Clone()}
	return rec.Clone(), nil
}

// Save upserts rec. An existing record keeps its ID and CreatedAt.
func (s *Store) Save(ctx context.Context, rec account.Record) (account.Record, error) {
	if err := ctx.Err(); err != nil {
		return account.Record{}, err
	}
	s.mu.Lock()
	e, ok := s.records[rec.Email]
	if !ok {
		e = &entry{}
		s.records[rec.Email] = e
	}
	e.mu.Lock()
	s.mu.Unlock()
	defer e.mu.Unlock()

	now := s.now()
	if ok {
		rec.ID = e.rec.ID
		rec.CreatedAt = e.rec.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	e.rec = rec.Clone()
	return rec.Clone(), nil
}

// Update runs fn on a copy of the record under the record lock and stores
// the copy only when fn succeeds.
func (s *Store) Update(ctx context.Context, email string, fn func(*account.Record) error) (account.Record, error) {
	if err := ctx.Err(); err != nil {
		return account.Record{}, err
	}
	e, ok := s.lookup(email)
	if !ok {
		return account.Record{}, account.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.rec.Clone()
	if err := fn(&next); err != nil {
		return account.Record{}, err
	}
	next.ID = e.rec.ID
	next.Email = e.rec.Email
	next.UpdatedAt = s.now()
	e.rec = next
	return next.Clone(), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
