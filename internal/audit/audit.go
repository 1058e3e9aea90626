//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package audit writes the cleaned, keyed record sets to CSV files next
// to a manifest of row counts and checksums. The files are a side channel
// for inspection; nothing reads them back.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
)

// ManifestName is the file name of the manifest in the output directory.
const ManifestName = "manifest.txt"

// File describes one written CSV file.
type File struct {
	Kind     model.Kind
	Name     string
	Rows     int
	Checksum uint64
}

// Manifest lists the files of one run.
type Manifest struct {
	RunID     string
	CreatedAt time.Time
	Files     []File
}

// FileName returns the cleaned file name for kind.
func FileName(kind model.Kind) string {
	return string(kind) + "_cleaned.csv"
}

// Write replaces the cleaned files in dir with the contents of data and
// writes the manifest.
func Write(dir, runID string, data model.Dataset) (Manifest, error) {
	m := Manifest{RunID: runID, CreatedAt: time.Now().UTC()}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, kind := range model.LoadOrder {
		name := FileName(kind)
		sum, err := writeFile(filepath.Join(dir, name), kind, data[kind])
		if err != nil {
			return m, fmt.Errorf("failed to write %s: %w", name, err)
		}
		m.Files = append(m.Files, File{Kind: kind, Name: name, Rows: len(data[kind]), Checksum: sum})

		logging.Debug().
			Str("file", name).
			Int("rows", len(data[kind])).
			Msg("Wrote cleaned file")
	}

	if err := writeManifest(filepath.Join(dir, ManifestName), m); err != nil {
		return m, err
	}

	logging.Info().
		Str("dir", dir).
		Int("files", len(m.Files)).
		Msg("Wrote cleaned output files")
	return m, nil
}

func writeFile(path string, kind model.Kind, recs []model.Record) (uint64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxh3.New()
	if err := WriteCSV(io.MultiWriter(f, h), kind, recs); err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// WriteCSV writes recs as CSV with a header row of the flat-file columns
// of kind.
func WriteCSV(w io.Writer, kind model.Kind, recs []model.Record) error {
	cols := model.RowColumns(kind)
	cw := csv.NewWriter(w)

	if err := cw.Write(cols); err != nil {
		return err
	}
	line := make([]string, len(cols))
	for _, r := range recs {
		row := r.Row()
		for i, c := range cols {
			line[i] = row[c]
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeManifest(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "run_id: %s\n", m.RunID)
	fmt.Fprintf(f, "created_at: %s\n", m.CreatedAt.Format(time.RFC3339))
	for _, file := range m.Files {
		fmt.Fprintf(f, "%s rows=%d xxh3=%016x\n", file.Name, file.Rows, file.Checksum)
	}
	return f.Close()
}
