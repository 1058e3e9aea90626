// Package memstore is an in-memory destination. It enforces primary key
// uniqueness and referential integrity the way the SQL schema does, which
// makes it useful for dry runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/store"
)

func init() {
	store.Register("in-memory destination, discarded on exit",
		func(ctx context.Context, cfg store.Config) (store.Store, error) {
			return New(), nil
		}, "memory")
}

type table struct {
	recs  []model.Record
	byKey map[int64]model.Record
	byNat map[string]int64
}

type state map[model.Kind]*table

func (s state) clone() state {
	out := make(state, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Store is an in-memory store.Store.
type Store struct {
	mu   sync.Mutex
	data state
	runs []store.Run
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(state)}
}

func (s *Store) ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replace(s.data, kind, recs)
}

func (s *Store) LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup(s.data, kind, naturalKey)
}

// Atomically runs fn against a staged copy that replaces the live data
// only when fn succeeds.
func (s *Store) Atomically(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &stage{data: s.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) RecordRun(ctx context.Context, run store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// Records returns the stored records of kind.
func (s *Store) Records(kind model.Kind) []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.data[kind]; t != nil {
		return append([]model.Record(nil), t.recs...)
	}
	return nil
}

// Runs returns the recorded run history.
func (s *Store) Runs() []store.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Run(nil), s.runs...)
}

func (s *Store) Close() error { return nil }

// stage is the store handed to an Atomically callback. The parent lock is
// held for its whole life.
type stage struct {
	data state
}

func (t *stage) ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error {
	return replace(t.data, kind, recs)
}

func (t *stage) LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error) {
	return lookup(t.data, kind, naturalKey)
}

func (t *stage) Close() error { return nil }

func replace(data state, kind model.Kind, recs []model.Record) error {
	t := &table{
		recs:  make([]model.Record, 0, len(recs)),
		byKey: make(map[int64]model.Record, len(recs)),
		byNat: make(map[string]int64, len(recs)),
	}
	for _, r := range recs {
		if r.Kind() != kind {
			return fmt.Errorf("record of kind %s in %s replacement", r.Kind(), kind)
		}
		if r.Key() <= 0 {
			return fmt.Errorf("%s %q has no key", kind, r.NaturalKey())
		}
		if _, dup := t.byKey[r.Key()]; dup {
			return fmt.Errorf("%s: duplicate key %d", kind, r.Key())
		}
		if _, dup := t.byNat[r.NaturalKey()]; dup {
			return fmt.Errorf("%s: duplicate natural key %q", kind, r.NaturalKey())
		}
		for _, ref := range r.Refs() {
			parent := data[ref.Kind]
			if parent == nil || parent.byKey[*ref.Key] == nil {
				return fmt.Errorf("%s %q references missing %s key %d", kind, r.NaturalKey(), ref.Kind, *ref.Key)
			}
		}
		t.recs = append(t.recs, r)
		t.byKey[r.Key()] = r
		t.byNat[r.NaturalKey()] = r.Key()
	}
	data[kind] = t
	return nil
}

func lookup(data state, kind model.Kind, naturalKey string) (int64, bool, error) {
	t := data[kind]
	if t == nil {
		return 0, false, nil
	}
	k, ok := t.byNat[naturalKey]
	return k, ok, nil
}
