//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package extract reads raw tabular records into uncommitted record sets.
// No validation happens here; every value is kept as text.
package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
)

// Source yields the raw rows of one entity kind.
type Source interface {
	Kind() model.Kind
	// Name identifies the source in logs and errors.
	Name() string
	Extract(ctx context.Context) (model.RecordSet, error)
}

// Static is an in-memory source.
type Static struct {
	K    model.Kind
	Rows []model.Row
}

func (s Static) Kind() model.Kind { return s.K }
func (s Static) Name() string     { return "static:" + string(s.K) }

func (s Static) Extract(ctx context.Context) (model.RecordSet, error) {
	rows := make([]model.Row, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = r.Clone()
	}
	return model.RecordSet{Kind: s.K, Rows: rows}, nil
}

// All extracts every source, reading them concurrently. It fails if any
// source is unreadable, so nothing downstream runs on a partial input; the
// error returned is that of the earliest failing source in the order given.
// Two sources of the same kind are concatenated in the order given.
func All(ctx context.Context, sources []Source) (map[model.Kind]model.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sets := make([]model.RecordSet, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			set, err := src.Extract(ctx)
			if err == nil && set.Kind != src.Kind() {
				err = fmt.Errorf("source %s returned kind %s, expected %s", src.Name(), set.Kind, src.Kind())
			}
			sets[i], errs[i] = set, err
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[model.Kind]model.RecordSet, len(sources))
	for i, set := range sets {
		logging.Info().
			Str("kind", string(set.Kind)).
			Str("source", sources[i].Name()).
			Int("rows_in", len(set.Rows)).
			Msg("Extracted records")

		prev := out[set.Kind]
		prev.Kind = set.Kind
		prev.Rows = append(prev.Rows, set.Rows...)
		out[set.Kind] = prev
	}
	return out, nil
}
