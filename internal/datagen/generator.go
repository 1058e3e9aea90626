package datagen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
)

// Options controls the size and dirtiness of a generated dataset.
type Options struct {
	Customers int
	Products  int
	Sales     int

	// DirtyRate is the probability that a row carries a defect the
	// cleaning rules must handle. Zero produces rows that only need
	// formatting changes.
	DirtyRate float64

	// Seed makes the output reproducible. Zero picks a random seed.
	Seed uint64
}

// DefaultOptions returns the sizes of the FlexiMart sample export.
func DefaultOptions() Options {
	return Options{
		Customers: 25,
		Products:  20,
		Sales:     40,
		DirtyRate: 0.15,
	}
}

// RawDataset holds generated raw rows per source kind.
type RawDataset struct {
	Customers []model.Row
	Products  []model.Row
	Sales     []model.Row
}

var categories = []string{"Electronics", "Fashion", "Home & Kitchen", "Books", "Sports", "Groceries"}

var statuses = []string{"Completed", "Pending", "Cancelled", "Shipped", "Delivered"}

// Raw date layouts seen in the exports.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "01-02-2006"}

// Generate builds a raw dataset.
func Generate(opts Options) RawDataset {
	f := NewFaker()
	if opts.Seed != 0 {
		f = NewFakerWithSeed(opts.Seed)
	}

	g := &generator{f: f, dirty: opts.DirtyRate}
	d := RawDataset{
		Customers: g.customers(opts.Customers),
		Products:  g.products(opts.Products),
	}
	d.Sales = g.sales(opts.Sales)

	logging.Debug().
		Int("customers", len(d.Customers)).
		Int("products", len(d.Products)).
		Int("sales", len(d.Sales)).
		Msg("Generated raw dataset")
	return d
}

type generator struct {
	f     *Faker
	dirty float64

	customerIDs []string
	productIDs  []string
	prices      map[string]string
}

func (g *generator) customers(n int) []model.Row {
	f := g.f
	rows := make([]model.Row, 0, n)
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("C%03d", i)
		first, last := f.FirstName(), f.LastName()
		row := model.Row{
			"customer_id":       id,
			"first_name":        first,
			"last_name":         last,
			"email":             strings.ToLower(fmt.Sprintf("%s.%s%d@example.com", first, last, i)),
			"phone":             g.phone(),
			"city":              f.City(),
			"registration_date": f.DateRange(start, end).Format(Choose(f, dateLayouts)),
		}
		row["email"] = strings.NewReplacer(" ", "", "'", "").Replace(row["email"])
		g.customerIDs = append(g.customerIDs, id)

		if f.Chance(g.dirty) {
			switch f.Int(0, 3) {
			case 0:
				row["email"] = ""
			case 1:
				row["email"] = " " + strings.ToUpper(row["email"]) + " "
			case 2:
				row["city"] = f.MangleCase(row["city"])
				row["first_name"] = "  " + row["first_name"]
			case 3:
				row["phone"] = f.Digits(6)
			}
		}
		rows = append(rows, row)

		if f.Chance(g.dirty / 2) {
			dup := row.Clone()
			dup["phone"] = g.phone()
			rows = append(rows, dup)
		}
	}
	return rows
}

// phone returns a mobile number in one of the export's formats.
func (g *generator) phone() string {
	n := g.f.MobileNumber()
	switch g.f.Int(0, 4) {
	case 0:
		return "+91-" + n
	case 1:
		return "0" + n
	case 2:
		return n[:5] + " " + n[5:]
	case 3:
		return "+91 " + n
	}
	return n
}

func (g *generator) products(n int) []model.Row {
	f := g.f
	rows := make([]model.Row, 0, n)
	g.prices = make(map[string]string, n)

	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("P%03d", i)
		price := fmt.Sprintf("%.2f", f.Price(99, 60000))
		row := model.Row{
			"product_id":     id,
			"product_name":   f.ProductName(),
			"category":       f.MangleCase(Choose(f, categories)),
			"price":          price,
			"stock_quantity": fmt.Sprintf("%d", f.Int(0, 500)),
		}
		g.productIDs = append(g.productIDs, id)
		g.prices[id] = price

		if f.Chance(g.dirty) {
			switch f.Int(0, 2) {
			case 0:
				row["stock_quantity"] = ""
			case 1:
				row["price"] = "-" + price
			case 2:
				row["price"] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (g *generator) sales(n int) []model.Row {
	f := g.f
	rows := make([]model.Row, 0, n)
	if len(g.customerIDs) == 0 || len(g.productIDs) == 0 {
		return rows
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= n; i++ {
		product := Choose(f, g.productIDs)
		row := model.Row{
			"transaction_id":   fmt.Sprintf("T%03d", i),
			"customer_id":      Choose(f, g.customerIDs),
			"product_id":       product,
			"quantity":         fmt.Sprintf("%d", ChooseWeighted(f, []int{1, 2, 3, 4}, []int{60, 25, 10, 5})),
			"unit_price":       g.prices[product],
			"transaction_date": f.DateRange(start, end).Format(Choose(f, dateLayouts)),
			"status":           Choose(f, statuses),
		}

		if f.Chance(g.dirty) {
			switch f.Int(0, 4) {
			case 0:
				row["customer_id"] = ""
			case 1:
				row["product_id"] = "P999"
			case 2:
				row["transaction_date"] = "2024-13-45"
			case 3:
				row["status"] = f.MangleCase(row["status"])
			case 4:
				row["quantity"] = "0"
			}
		}
		rows = append(rows, row)

		if f.Chance(g.dirty / 2) {
			rows = append(rows, row.Clone())
		}
	}
	return rows
}

// FileName returns the raw export file name for kind.
func FileName(kind model.Kind) string {
	return string(kind) + "_raw.csv"
}

// WriteCSV writes the dataset to dir as customers_raw.csv,
// products_raw.csv and sales_raw.csv and returns the paths by kind.
func (d RawDataset) WriteCSV(dir string) (map[model.Kind]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	sets := []struct {
		kind model.Kind
		rows []model.Row
	}{
		{model.KindCustomers, d.Customers},
		{model.KindProducts, d.Products},
		{model.KindSales, d.Sales},
	}

	paths := make(map[model.Kind]string, len(sets))
	for _, s := range sets {
		path := filepath.Join(dir, FileName(s.kind))
		if err := writeRows(path, rawColumns(s.kind), s.rows); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths[s.kind] = path

		logging.Info().
			Str("file", path).
			Int("rows", len(s.rows)).
			Msg("Wrote raw file")
	}
	return paths, nil
}

// rawColumns drops the surrogate key columns, which raw exports lack.
func rawColumns(kind model.Kind) []string {
	var cols []string
	for _, c := range model.RowColumns(kind) {
		if c == "id" || strings.HasSuffix(c, "_key") {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func writeRows(path string, cols []string, rows []model.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}
	line := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			line[i] = r[c]
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
