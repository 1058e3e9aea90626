//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the ETL stages in their fixed order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleximart/fleximart-etl/internal/audit"
	"github.com/fleximart/fleximart-etl/internal/etlerr"
	"github.com/fleximart/fleximart-etl/internal/extract"
	"github.com/fleximart/fleximart-etl/internal/load"
	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/metrics"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/report"
	"github.com/fleximart/fleximart-etl/internal/store"
	"github.com/fleximart/fleximart-etl/internal/transform"
)

// Opener opens a destination store.
type Opener func(ctx context.Context, cfg store.Config) (store.Store, error)

// Options is the complete, immutable configuration of one run.
type Options struct {
	// RunID identifies the run in the report, the manifest and the run
	// history. A random UUID is used when empty.
	RunID   string
	Version string

	CountryCode string
	KeyStrategy load.Strategy

	Sources []extract.Source

	// Load enables the destination write.
	Load  bool
	Store store.Config
	// Open defaults to store.Open.
	Open Opener

	// OutputDir enables the cleaned flat files when set.
	OutputDir string
	// ReportPath enables the appended text report when set.
	ReportPath string

	Metrics        *metrics.Recorder
	PushgatewayURL string
	MetricsJob     string
}

// Result is what a run produced.
type Result struct {
	RunID   string
	Summary report.Summary
	Data    model.Dataset
	Log     *model.Log

	// Manifest is nil when flat-file output was disabled or failed.
	Manifest *audit.Manifest
	// Loaded is the number of records written and verified.
	Loaded int
}

// Run executes one pipeline run. Extraction failures abort before any
// write. A destination failure aborts the load only: the result, the
// flat files and the report are still produced and the error is returned
// alongside the result.
func Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if len(opts.Sources) == 0 {
		return nil, etlerr.Config("no input sources configured")
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.New()
	}

	logging.Info().
		Str("run_id", opts.RunID).
		Int("sources", len(opts.Sources)).
		Bool("load", opts.Load).
		Msg("Starting ETL run")

	var sets map[model.Kind]model.RecordSet
	err := rec.Time(metrics.StageExtract, func() error {
		var err error
		sets, err = extract.All(ctx, opts.Sources)
		return err
	})
	if err != nil {
		return nil, err
	}
	for kind, set := range sets {
		rec.Rows(string(kind), metrics.StageExtract, len(set.Rows))
	}

	log := model.NewLog()
	var data model.Dataset
	_ = rec.Time(metrics.StageTransform, func() error {
		data = transformAll(sets, transform.New(transform.Options{CountryCode: opts.CountryCode}), log)
		return nil
	})

	_ = rec.Time(metrics.StageKey, func() error {
		data = load.New(opts.KeyStrategy).Key(data, log)
		transform.FinalizeTotals(data[model.KindOrders], data[model.KindOrderItems], log)
		return nil
	})

	res := &Result{RunID: opts.RunID, Data: data, Log: log}
	var notes []string

	if opts.OutputDir != "" {
		err := rec.Time(metrics.StageOutput, func() error {
			m, err := audit.Write(opts.OutputDir, opts.RunID, data)
			if err != nil {
				return err
			}
			res.Manifest = &m
			return nil
		})
		if err != nil {
			logging.Error().Err(err).Str("dir", opts.OutputDir).Msg("Failed to write cleaned output files")
			notes = append(notes, fmt.Sprintf("Output: failed: %v", err))
		} else {
			notes = append(notes, fmt.Sprintf("Output: %s", opts.OutputDir))
		}
	} else {
		notes = append(notes, "Output: disabled")
	}

	var loadErr error
	if opts.Load {
		loadErr = rec.Time(metrics.StageLoad, func() error {
			n, err := loadAll(ctx, opts, data, log, started)
			res.Loaded = n
			return err
		})
		if loadErr != nil {
			logging.Error().Err(loadErr).Msg("Load failed")
			notes = append(notes, fmt.Sprintf("Load: failed: %v", loadErr))
		} else {
			notes = append(notes, fmt.Sprintf("Load: %d rows written to %s", res.Loaded, driverName(opts.Store)))
			for _, kind := range model.LoadOrder {
				rec.Rows(string(kind), metrics.StageLoad, len(data[kind]))
			}
		}
	} else {
		notes = append(notes, "Load: disabled")
	}

	_ = rec.Time(metrics.StageReport, func() error {
		res.Summary = report.Summarize(log)
		res.Summary.RunID = opts.RunID
		res.Summary.Version = opts.Version
		res.Summary.StartedAt = started
		res.Summary.FinishedAt = time.Now()
		res.Summary.Notes = notes
		res.Summary.Log()

		if opts.ReportPath != "" {
			if err := report.AppendFile(opts.ReportPath, res.Summary); err != nil {
				logging.Error().Err(err).Str("path", opts.ReportPath).Msg("Failed to write report")
				return err
			}
			logging.Info().Str("path", opts.ReportPath).Msg("Appended run report")
		}
		return nil
	})

	rec.Summary(res.Summary)
	if opts.PushgatewayURL != "" {
		if err := rec.Push(ctx, opts.PushgatewayURL, opts.MetricsJob, opts.RunID); err != nil {
			logging.Warn().Err(err).Msg("Failed to push metrics")
		}
	} else {
		rec.LogDebug()
	}

	logging.Info().
		Str("run_id", opts.RunID).
		Dur("elapsed", time.Since(started)).
		Msg("ETL run finished")

	return res, loadErr
}

// transformAll cleans every extracted set in dependency order. Sales are
// split into orders and items, which join any orders and items read
// directly.
func transformAll(sets map[model.Kind]model.RecordSet, tr *transform.Transformer, log *model.Log) model.Dataset {
	data := make(model.Dataset, len(model.LoadOrder))
	for _, kind := range model.TransformOrder {
		set, ok := sets[kind]
		if !ok {
			continue
		}

		if kind == model.KindSales {
			sales, l := tr.TransformSales(set)
			log.Merge(l)
			orders, items, l := transform.SplitSales(sales)
			log.Merge(l)
			data[model.KindOrders] = append(data[model.KindOrders], orders...)
			data[model.KindOrderItems] = append(data[model.KindOrderItems], items...)
			continue
		}

		recs, l := tr.Transform(set)
		log.Merge(l)
		data[kind] = append(data[kind], recs...)
	}
	return data
}

func loadAll(ctx context.Context, opts Options, data model.Dataset, log *model.Log, started time.Time) (int, error) {
	open := opts.Open
	if open == nil {
		open = store.Open
	}

	st, err := open(ctx, opts.Store)
	if err != nil {
		return 0, destination("open store", err)
	}
	defer st.Close()

	if s, ok := st.(store.Schema); ok {
		if err := s.CreateSchema(ctx); err != nil {
			return 0, destination("create schema", err)
		}
	}

	loader := load.New(opts.KeyStrategy)
	if err := loader.Write(ctx, st, data); err != nil {
		return 0, destination("write", err)
	}
	n, err := loader.Verify(ctx, st, data)
	if err != nil {
		return n, destination("verify", err)
	}

	if rr, ok := st.(store.RunRecorder); ok {
		run := store.Run{
			ID:         opts.RunID,
			Version:    opts.Version,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Loaded:     n,
			Dropped:    len(log.Drops),
			Changes:    len(log.Changes),
		}
		if err := rr.RecordRun(ctx, run); err != nil {
			logging.Warn().Err(err).Msg("Failed to record run history")
		}
	}
	return n, nil
}

// destination classifies err as a destination failure unless it already
// carries a kind.
func destination(op string, err error) error {
	if etlerr.KindOf(err) != etlerr.Unknown {
		return err
	}
	return etlerr.Destination(op, err)
}

func driverName(cfg store.Config) string {
	if cfg.Driver == "" {
		return "destination"
	}
	return cfg.Driver
}
