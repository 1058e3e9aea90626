//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report aggregates a run log into a fixed-layout summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
)

// KindSummary holds the figures for one entity kind.
type KindSummary struct {
	Kind     model.Kind
	In       int
	Out      int
	Dropped  int
	Modified int
	Drops    map[model.Reason]int
	Changes  map[model.Rule]int
}

// Summary is the report of one run. Kinds follow the transform order and
// only kinds that saw rows are included.
type Summary struct {
	RunID      string
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time
	Kinds      []KindSummary

	// Notes are free-form lines such as the load outcome.
	Notes []string
}

// Summarize derives the per-kind figures from a log. It has no other
// inputs, so the same log always yields the same summary.
func Summarize(log *model.Log) Summary {
	var s Summary
	if log == nil {
		return s
	}

	type rowID struct {
		kind model.Kind
		key  string
	}
	gone := make(map[rowID]bool)
	for _, d := range log.Drops {
		// Duplicates carry the key of the row that survived.
		if d.Reason != model.ReasonDuplicate {
			gone[rowID{d.Kind, d.NaturalKey}] = true
		}
	}

	for _, kind := range model.TransformOrder {
		ks := KindSummary{
			Kind:    kind,
			In:      log.RowsIn[kind],
			Drops:   make(map[model.Reason]int),
			Changes: make(map[model.Rule]int),
		}

		for _, d := range log.Drops {
			if d.Kind == kind {
				ks.Drops[d.Reason]++
				ks.Dropped++
			}
		}

		modified := make(map[string]bool)
		for _, c := range log.Changes {
			if c.Kind != kind {
				continue
			}
			ks.Changes[c.Rule]++
			if !gone[rowID{kind, c.NaturalKey}] {
				modified[c.NaturalKey] = true
			}
		}
		ks.Modified = len(modified)
		ks.Out = ks.In - ks.Dropped

		if ks.In == 0 && ks.Dropped == 0 && len(ks.Changes) == 0 {
			continue
		}
		s.Kinds = append(s.Kinds, ks)
	}
	return s
}

// Kind returns the figures for kind.
func (s Summary) Kind(kind model.Kind) (KindSummary, bool) {
	for _, ks := range s.Kinds {
		if ks.Kind == kind {
			return ks, true
		}
	}
	return KindSummary{}, false
}

// WriteText writes the summary in its fixed human-readable layout.
func (s Summary) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "FlexiMart ETL run report")
	fmt.Fprintf(tw, "Run:\t%s\n", orDash(s.RunID))
	if s.Version != "" {
		fmt.Fprintf(tw, "Version:\t%s\n", s.Version)
	}
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(tw, "Started:\t%s\n", s.StartedAt.Format(time.RFC3339))
	}
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(tw, "Finished:\t%s\n", s.FinishedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "KIND\tIN\tOUT\tDROPPED\tMODIFIED")
	for _, ks := range s.Kinds {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", ks.Kind, ks.In, ks.Out, ks.Dropped, ks.Modified)
	}

	for _, ks := range s.Kinds {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "%s\n", ks.Kind)
		for _, r := range model.Reasons {
			fmt.Fprintf(tw, "  dropped: %s\t%d\n", r, ks.Drops[r])
		}
		for _, r := range model.Rules {
			fmt.Fprintf(tw, "  modified: %s\t%d\n", r, ks.Changes[r])
		}
	}

	if len(s.Notes) > 0 {
		fmt.Fprintln(tw)
		for _, n := range s.Notes {
			fmt.Fprintln(tw, n)
		}
	}
	fmt.Fprintln(tw, "----")

	return tw.Flush()
}

// AppendFile appends the text form of s to the report file at path,
// creating the file and its directory if needed.
func AppendFile(path string, s Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}
	if err := s.WriteText(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

// Log emits the per-kind figures at info level.
func (s Summary) Log() {
	for _, ks := range s.Kinds {
		ev := logging.Info().
			Str("kind", string(ks.Kind)).
			Int("rows_in", ks.In).
			Int("rows_out", ks.Out).
			Int("dropped", ks.Dropped).
			Int("modified", ks.Modified)
		for r, n := range ks.Drops {
			ev = ev.Int("dropped_"+strings.ReplaceAll(string(r), " ", "_"), n)
		}
		ev.Msg("Run summary")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
