//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics collects run metrics in a private Prometheus registry and
// optionally pushes them to a Pushgateway. A batch run exits before any
// scraper would see it, so there is no HTTP endpoint.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/report"
)

// DefaultJob is the Pushgateway job name used when none is configured.
const DefaultJob = "fleximart_etl"

// Stage labels.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageKey       = "key"
	StageOutput    = "output"
	StageLoad      = "load"
	StageReport    = "report"
)

// Recorder holds the run metrics.
type Recorder struct {
	reg *prometheus.Registry

	rows     *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	changes  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleximart_etl_rows_total",
			Help: "Rows seen per entity kind and pipeline stage.",
		}, []string{"kind", "stage"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleximart_etl_dropped_total",
			Help: "Rows dropped per entity kind and reason.",
		}, []string{"kind", "reason"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleximart_etl_changes_total",
			Help: "Values rewritten per entity kind and cleaning rule.",
		}, []string{"kind", "rule"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleximart_etl_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}
	r.reg.MustRegister(r.rows, r.dropped, r.changes, r.duration)
	return r
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Rows adds n rows of kind seen at stage.
func (r *Recorder) Rows(kind, stage string, n int) {
	r.rows.WithLabelValues(kind, stage).Add(float64(n))
}

// Stage records how long a stage took.
func (r *Recorder) Stage(stage string, d time.Duration) {
	r.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// Time runs fn and records its duration under stage.
func (r *Recorder) Time(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.Stage(stage, time.Since(start))
	return err
}

// Summary adds the drop and change breakdowns of a run summary, and its
// input and output row counts.
func (r *Recorder) Summary(s report.Summary) {
	for _, ks := range s.Kinds {
		kind := string(ks.Kind)
		r.Rows(kind, "in", ks.In)
		r.Rows(kind, "out", ks.Out)
		for reason, n := range ks.Drops {
			if n > 0 {
				r.dropped.WithLabelValues(kind, string(reason)).Add(float64(n))
			}
		}
		for rule, n := range ks.Changes {
			if n > 0 {
				r.changes.WithLabelValues(kind, string(rule)).Add(float64(n))
			}
		}
	}
}

// Push sends the registry to a Pushgateway, grouped by job and run id.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, runID string) error {
	if gatewayURL == "" {
		return fmt.Errorf("pushgateway URL is required")
	}
	if job == "" {
		job = DefaultJob
	}

	p := push.New(gatewayURL, job).Gatherer(r.reg)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	logging.Info().
		Str("url", gatewayURL).
		Str("job", job).
		Msg("Pushed metrics")
	return nil
}

// LogDebug writes the gathered metric families at debug level.
func (r *Recorder) LogDebug() {
	families, err := r.reg.Gather()
	if err != nil {
		logging.Debug().Err(err).Msg("Failed to gather metrics")
		return
	}
	for _, mf := range families {
		logging.Debug().
			Str("metric", mf.GetName()).
			Int("series", len(mf.GetMetric())).
			Msg("Collected metric")
	}
}
