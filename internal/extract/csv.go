package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fleximart/fleximart-etl/internal/etlerr"
	"github.com/fleximart/fleximart-etl/internal/model"
)

const utf8BOM = "\uFEFF"

// CSV reads one kind from a comma-separated file with a header row.
type CSV struct {
	K    model.Kind
	Path string
}

func (c CSV) Kind() model.Kind { return c.K }
func (c CSV) Name() string     { return c.Path }

// Extract opens the file and parses it. Any failure to open or parse the
// file is a SourceUnavailable error.
func (c CSV) Extract(ctx context.Context) (model.RecordSet, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return model.RecordSet{}, etlerr.Source("open "+c.Path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return model.RecordSet{}, etlerr.Source("read "+c.Path, err)
	}
	return model.RecordSet{Kind: c.K, Rows: rows}, nil
}

// ReadRows parses CSV data with a header row. Header names are trimmed and
// lower-cased and a leading UTF-8 BOM is removed. Short rows are padded
// with empty values; cells beyond the header are ignored. Blank lines are
// skipped.
func ReadRows(r io.Reader) ([]model.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []model.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(rec) {
			continue
		}
		row := make(model.Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
