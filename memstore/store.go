// Package memstore provides an in-memory encdoc.Store that enforces the
// remote store contract: atomic per-id sequence checks and unique index
// tokens. It is meant for tests, examples and local tooling.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ai8future/encdoc"
)

// Store is an in-memory encdoc.Store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]*encdoc.EncryptedRecord
}

var _ encdoc.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]*encdoc.EncryptedRecord)}
}

// Insert implements encdoc.Store.
func (s *Store) Insert(ctx context.Context, rec *encdoc.EncryptedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := encdoc.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Sequence != 0 {
		return fmt.Errorf("%w: insert of %q with sequence %d", encdoc.ErrConflict, rec.ID, rec.Sequence)
	}
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("%w: %q already exists", encdoc.ErrConflict, rec.ID)
	}
	if err := s.checkUnique(rec); err != nil {
		return err
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Update implements encdoc.Store.
func (s *Store) Update(ctx context.Context, rec *encdoc.EncryptedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := encdoc.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[rec.ID]
	switch {
	case !exists && rec.Sequence != 0:
		return fmt.Errorf("%w: %q does not exist, sequence %d", encdoc.ErrConflict, rec.ID, rec.Sequence)
	case exists && rec.Sequence != current.Sequence+1:
		return fmt.Errorf("%w: %q is at sequence %d, got %d", encdoc.ErrConflict, rec.ID, current.Sequence, rec.Sequence)
	}
	if err := s.checkUnique(rec); err != nil {
		return err
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

// checkUnique rejects rec if any of its unique index tokens is held by
// another record. Callers hold s.mu.
func (s *Store) checkUnique(rec *encdoc.EncryptedRecord) error {
	for _, entry := range rec.Indexed {
		if !entry.Unique {
			continue
		}
		for id, other := range s.records {
			if id == rec.ID {
				continue
			}
			for _, oe := range other.Indexed {
				if oe.IndexID == entry.IndexID && intersects(oe.Tokens, entry.Tokens) {
					return fmt.Errorf("%w: unique index collision with %q", encdoc.ErrConflict, id)
				}
			}
		}
	}
	return nil
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// Get implements encdoc.Store.
func (s *Store) Get(ctx context.Context, id string) (*encdoc.EncryptedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", encdoc.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Find implements encdoc.Store. Results are ordered by id.
func (s *Store) Find(ctx context.Context, q *encdoc.Query) ([]*encdoc.EncryptedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.MatchesNothing() {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*encdoc.EncryptedRecord
	for _, rec := range s.records {
		if q.Matches(rec.Indexed) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored records, tombstones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
