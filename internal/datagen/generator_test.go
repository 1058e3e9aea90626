package datagen

import (
	"context"
	"reflect"
	"testing"

	"github.com/fleximart/fleximart-etl/internal/extract"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/transform"
)

func TestGenerateSizes(t *testing.T) {
	d := Generate(Options{Customers: 10, Products: 5, Sales: 20, Seed: 1})

	if len(d.Customers) != 10 {
		t.Errorf("Expected 10 customers, got %d", len(d.Customers))
	}
	if len(d.Products) != 5 {
		t.Errorf("Expected 5 products, got %d", len(d.Products))
	}
	if len(d.Sales) != 20 {
		t.Errorf("Expected 20 sales, got %d", len(d.Sales))
	}
}

func TestGenerateReproducible(t *testing.T) {
	opts := DefaultOptions()
	opts.Seed = 42
	a := Generate(opts)
	b := Generate(opts)
	if !reflect.DeepEqual(a, b) {
		t.Error("Same seed produced different datasets")
	}
}

func TestGenerateNoSalesWithoutParents(t *testing.T) {
	d := Generate(Options{Sales: 5, Seed: 3})
	if len(d.Sales) != 0 {
		t.Errorf("Expected no sales without customers and products, got %d", len(d.Sales))
	}
}

// Clean datasets only need formatting changes, never drops.
func TestCleanDatasetDropsNothing(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		d := Generate(Options{Customers: 30, Products: 15, Sales: 50, Seed: seed})
		tr := transform.New(transform.Options{})

		sets := []model.RecordSet{
			{Kind: model.KindCustomers, Rows: d.Customers},
			{Kind: model.KindProducts, Rows: d.Products},
			{Kind: model.KindSales, Rows: d.Sales},
		}
		for _, set := range sets {
			var log *model.Log
			if set.Kind == model.KindSales {
				_, log = tr.TransformSales(set)
			} else {
				_, log = tr.Transform(set)
			}
			if len(log.Drops) != 0 {
				t.Errorf("seed %d: expected no %s drops, got %+v", seed, set.Kind, log.Drops[0])
			}
		}
	}
}

func TestDirtyDatasetDropsRows(t *testing.T) {
	d := Generate(Options{Customers: 200, Products: 100, Sales: 300, DirtyRate: 0.5, Seed: 9})
	tr := transform.New(transform.Options{})

	_, log := tr.Transform(model.RecordSet{Kind: model.KindCustomers, Rows: d.Customers})
	if len(log.Drops) == 0 {
		t.Error("Expected dirty customers to be dropped")
	}
	_, log = tr.TransformSales(model.RecordSet{Kind: model.KindSales, Rows: d.Sales})
	if len(log.Drops) == 0 {
		t.Error("Expected dirty sales to be dropped")
	}
}

func TestWriteCSV(t *testing.T) {
	d := Generate(Options{Customers: 8, Products: 4, Sales: 12, DirtyRate: 0.3, Seed: 5})
	paths, err := d.WriteCSV(t.TempDir())
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(paths))
	}

	var sources []extract.Source
	for _, kind := range []model.Kind{model.KindCustomers, model.KindProducts, model.KindSales} {
		sources = append(sources, extract.CSV{K: kind, Path: paths[kind]})
	}
	sets, err := extract.All(context.Background(), sources)
	if err != nil {
		t.Fatalf("Failed to read generated files: %v", err)
	}

	want := map[model.Kind][]model.Row{
		model.KindCustomers: d.Customers,
		model.KindProducts:  d.Products,
		model.KindSales:     d.Sales,
	}
	for kind, rows := range want {
		got := sets[kind].Rows
		if len(got) != len(rows) {
			t.Errorf("%s: expected %d rows, got %d", kind, len(rows), len(got))
			continue
		}
		if _, ok := got[0]["id"]; ok {
			t.Errorf("%s: raw files should not carry surrogate keys", kind)
		}
		for col, v := range rows[0] {
			if got[0][col] != v {
				t.Errorf("%s: column %s expected %q, got %q", kind, col, v, got[0][col])
			}
		}
	}
}
