//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package load assigns surrogate keys, resolves foreign keys and writes
// keyed records to a store.
package load

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/store"
)

// Strategy decides whether keys of dropped records are reused.
type Strategy string

const (
	// Monotonic numbers every record that reaches the loader, so a record
	// dropped as an orphan leaves a gap in the key sequence.
	Monotonic Strategy = "monotonic"
	// Dense numbers only the records that are written.
	Dense Strategy = "dense"
)

// ParseStrategy validates a strategy name. The empty string selects
// Monotonic.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Monotonic:
		return Monotonic, nil
	case Dense:
		return Dense, nil
	}
	return "", fmt.Errorf("unknown key strategy: %s (use monotonic or dense)", s)
}

// Loader keys and writes datasets.
type Loader struct {
	strategy Strategy
}

// New creates a Loader.
func New(strategy Strategy) *Loader {
	if strategy == "" {
		strategy = Monotonic
	}
	return &Loader{strategy: strategy}
}

// Key assigns surrogate keys and resolves references kind by kind in
// dependency order. Records whose parent cannot be found, and records
// repeating a natural key already seen, are dropped and logged. The
// returned dataset holds only the survivors.
func (l *Loader) Key(data model.Dataset, log *model.Log) model.Dataset {
	out := make(model.Dataset, len(model.LoadOrder))
	index := make(map[model.Kind]map[string]int64, len(model.LoadOrder))
	ambiguous := make(map[model.Kind]map[string]bool, len(model.LoadOrder))

	for _, kind := range model.LoadOrder {
		recs := uniqueNatural(kind, data[kind], log)
		alloc := newAllocator(recs)

		if l.strategy == Monotonic {
			alloc.assign(recs)
		}
		kept := resolve(kind, recs, index, ambiguous, log)
		if l.strategy == Dense {
			alloc.assign(kept)
		}

		idx, amb := lookupIndex(kind, kept)
		index[kind] = idx
		ambiguous[kind] = amb
		out[kind] = kept

		logging.Info().
			Str("kind", string(kind)).
			Str("strategy", string(l.strategy)).
			Int("rows", len(kept)).
			Int("dropped", len(data[kind])-len(kept)).
			Int64("next_key", alloc.next).
			Msg("Assigned keys")
	}
	return out
}

// Write replaces the contents of every destination kind, parents first.
// Stores implementing store.Atomic apply all four replacements as one
// unit.
func (l *Loader) Write(ctx context.Context, st store.Store, data model.Dataset) error {
	write := func(s store.Store) error {
		for _, kind := range model.LoadOrder {
			if err := s.ReplaceAll(ctx, kind, data[kind]); err != nil {
				return fmt.Errorf("replace %s: %w", kind, err)
			}
			logging.Info().
				Str("kind", string(kind)).
				Int("rows", len(data[kind])).
				Msg("Replaced destination rows")
		}
		return nil
	}

	if a, ok := st.(store.Atomic); ok {
		return a.Atomically(ctx, write)
	}
	logging.Warn().Msg("Store is not transactional; replacements are applied one kind at a time")
	return write(st)
}

// Verify reads every record back through LookupKey and checks that the
// store holds the key assigned during Key. It returns the number of
// records checked.
func (l *Loader) Verify(ctx context.Context, st store.Store, data model.Dataset) (int, error) {
	n := 0
	for _, kind := range model.LoadOrder {
		for _, r := range data[kind] {
			got, ok, err := st.LookupKey(ctx, kind, r.NaturalKey())
			if err != nil {
				return n, fmt.Errorf("lookup %s %q: %w", kind, r.NaturalKey(), err)
			}
			if !ok {
				return n, fmt.Errorf("%s %q missing after load", kind, r.NaturalKey())
			}
			if got != r.Key() {
				return n, fmt.Errorf("%s %q: stored key %d, assigned %d", kind, r.NaturalKey(), got, r.Key())
			}
			n++
		}
	}
	logging.Info().Int("rows", n).Msg("Verified loaded keys")
	return n, nil
}

func uniqueNatural(kind model.Kind, recs []model.Record, log *model.Log) []model.Record {
	seen := make(map[string]bool, len(recs))
	out := make([]model.Record, 0, len(recs))
	for _, r := range recs {
		nk := r.NaturalKey()
		if seen[nk] {
			log.Drop(model.Drop{Kind: kind, NaturalKey: nk, Reason: model.ReasonDuplicate, Detail: "natural key already loaded"})
			continue
		}
		seen[nk] = true
		out = append(out, r)
	}
	return out
}

// lookupIndex maps every lookup key of recs to its surrogate key. A lookup
// key shared by records with different surrogate keys is left out of the
// index and returned as ambiguous.
func lookupIndex(kind model.Kind, recs []model.Record) (map[string]int64, map[string]bool) {
	idx := make(map[string]int64, len(recs))
	amb := make(map[string]bool)
	for _, r := range recs {
		for _, nk := range r.LookupKeys() {
			if nk == "" {
				continue
			}
			k, ok := idx[nk]
			if !ok {
				idx[nk] = r.Key()
				continue
			}
			if k != r.Key() && !amb[nk] {
				amb[nk] = true
				logging.Warn().
					Str("kind", string(kind)).
					Str("lookup_key", nk).
					Msg("Lookup key shared by several records; references to it will be dropped")
			}
		}
	}
	for nk := range amb {
		delete(idx, nk)
	}
	return idx, amb
}

// resolve fills every reference from the parent indexes and drops records
// with a parent that does not exist or cannot be told apart.
func resolve(kind model.Kind, recs []model.Record, index map[model.Kind]map[string]int64, ambiguous map[model.Kind]map[string]bool, log *model.Log) []model.Record {
	kept := recs[:0:0]
	for _, r := range recs {
		orphan := ""
		for _, ref := range r.Refs() {
			if ambiguous[ref.Kind][ref.NaturalKey] {
				orphan = fmt.Sprintf("%s %q is ambiguous", ref.Kind, ref.NaturalKey)
				break
			}
			k, ok := index[ref.Kind][ref.NaturalKey]
			if !ok {
				orphan = fmt.Sprintf("%s %q not found", ref.Kind, ref.NaturalKey)
				break
			}
			*ref.Key = k
		}
		if orphan != "" {
			log.Drop(model.Drop{Kind: kind, NaturalKey: r.NaturalKey(), Reason: model.ReasonOrphaned, Detail: orphan})
			logging.Debug().
				Str("kind", string(kind)).
				Str("key", r.NaturalKey()).
				Str("detail", orphan).
				Msg("Dropped orphaned row")
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
