package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/etlerr"
	"github.com/fleximart/fleximart-etl/internal/extract"
	"github.com/fleximart/fleximart-etl/internal/load"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/report"
	"github.com/fleximart/fleximart-etl/internal/store"
	"github.com/fleximart/fleximart-etl/internal/store/memstore"
	"github.com/fleximart/fleximart-etl/internal/store/sqlstore"
	"github.com/fleximart/fleximart-etl/internal/testutil"
)

func memOpener(m *memstore.Store) Opener {
	return func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return m, nil
	}
}

func TestRunFixtures(t *testing.T) {
	mem := memstore.New()
	dir := t.TempDir()

	res, err := Run(context.Background(), Options{
		RunID:      "fixture-run",
		Sources:    testutil.Sources(),
		Load:       true,
		Store:      store.Config{Driver: "memory"},
		Open:       memOpener(mem),
		OutputDir:  filepath.Join(dir, "out"),
		ReportPath: filepath.Join(dir, "etl_report.txt"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tests := []struct {
		kind    model.Kind
		in, out int
		drops   map[model.Reason]int
	}{
		{model.KindCustomers, 5, 3, map[model.Reason]int{model.ReasonDuplicate: 1, model.ReasonMissingRequired: 1}},
		{model.KindProducts, 4, 3, map[model.Reason]int{model.ReasonInvalidValue: 1}},
		{model.KindSales, 7, 4, map[model.Reason]int{model.ReasonDuplicate: 1, model.ReasonMissingRequired: 1, model.ReasonUnparseableDate: 1}},
		{model.KindOrders, 3, 3, nil},
		{model.KindOrderItems, 4, 3, map[model.Reason]int{model.ReasonOrphaned: 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			ks, ok := res.Summary.Kind(tt.kind)
			if !ok {
				t.Fatalf("Expected %s in summary", tt.kind)
			}
			if ks.In != tt.in || ks.Out != tt.out {
				t.Errorf("Expected in/out %d/%d, got %d/%d", tt.in, tt.out, ks.In, ks.Out)
			}
			for reason, n := range tt.drops {
				if ks.Drops[reason] != n {
					t.Errorf("Expected %d %q drops, got %d", n, reason, ks.Drops[reason])
				}
			}
			if ks.Out != ks.In-ks.Dropped {
				t.Errorf("Expected out = in - dropped, got %d != %d - %d", ks.Out, ks.In, ks.Dropped)
			}
			if tt.kind != model.KindSales && len(res.Data[tt.kind]) != tt.out {
				t.Errorf("Expected %d records in result, got %d", tt.out, len(res.Data[tt.kind]))
			}
		})
	}

	if res.Loaded != 12 {
		t.Errorf("Expected 12 loaded rows, got %d", res.Loaded)
	}
	if got := len(mem.Records(model.KindOrderItems)); got != 3 {
		t.Errorf("Expected 3 stored items, got %d", got)
	}
	if runs := mem.Runs(); len(runs) != 1 || runs[0].ID != "fixture-run" {
		t.Errorf("Expected one recorded run, got %+v", runs)
	}

	// Order totals equal the sum of their surviving items.
	totals := map[string]string{
		"C001@2024-01-15": "51997.00",
		"C002@2024-01-22": "3499.00",
		"C004@2024-02-10": "0.00",
	}
	for _, o := range model.Typed[*model.Order](res.Data[model.KindOrders]) {
		if want := totals[o.OrderID]; o.TotalAmount.StringFixed(2) != want {
			t.Errorf("Order %s: expected total %s, got %s", o.OrderID, want, o.TotalAmount.StringFixed(2))
		}
		sum := decimal.Zero
		for _, it := range model.Typed[*model.OrderItem](res.Data[model.KindOrderItems]) {
			if it.OrderKey == o.ID {
				sum = sum.Add(it.Subtotal)
			}
		}
		if !sum.Equal(o.TotalAmount) {
			t.Errorf("Order %s: total %s differs from item sum %s", o.OrderID, o.TotalAmount, sum)
		}
	}

	// The orphaned item consumed key 4 under the monotonic strategy.
	var itemKeys []int64
	for _, r := range res.Data[model.KindOrderItems] {
		itemKeys = append(itemKeys, r.Key())
	}
	if len(itemKeys) != 3 || itemKeys[2] != 3 {
		t.Errorf("Expected item keys [1 2 3], got %v", itemKeys)
	}

	if res.Manifest == nil || len(res.Manifest.Files) != 4 {
		t.Errorf("Expected a manifest with 4 files, got %+v", res.Manifest)
	}
	body, err := os.ReadFile(filepath.Join(dir, "etl_report.txt"))
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	if !strings.Contains(string(body), "fixture-run") || !strings.Contains(string(body), "Load: 12 rows written to memory") {
		t.Errorf("Unexpected report:\n%s", body)
	}
}

func TestRunCustomerPhonesAreCanonical(t *testing.T) {
	res, err := Run(context.Background(), Options{Sources: testutil.Sources()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := map[string]string{
		"rahul.sharma@gmail.com": "+91-9876543210",
		"priya.patel@yahoo.com":  "+91-9988776655",
		"sneha.reddy@gmail.com":  "+91-9123456789",
	}
	for _, c := range model.Typed[*model.Customer](res.Data[model.KindCustomers]) {
		if c.Phone == nil || *c.Phone != want[c.Email] {
			t.Errorf("%s: expected phone %s, got %v", c.Email, want[c.Email], c.Phone)
		}
	}
}

func TestRunDenseKeys(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Sources:     testutil.Sources(),
		KeyStrategy: load.Dense,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, r := range res.Data[model.KindCustomers] {
		if r.Key() != int64(i+1) {
			t.Errorf("Expected customer key %d, got %d", i+1, r.Key())
		}
	}
}

func TestRunSourceUnavailable(t *testing.T) {
	opened := false
	res, err := Run(context.Background(), Options{
		Sources: []extract.Source{
			extract.Static{K: model.KindCustomers, Rows: testutil.RawCustomers()},
			extract.CSV{K: model.KindProducts, Path: filepath.Join(t.TempDir(), "missing.csv")},
		},
		Load: true,
		Open: func(ctx context.Context, cfg store.Config) (store.Store, error) {
			opened = true
			return memstore.New(), nil
		},
	})
	if !errors.Is(err, etlerr.ErrSourceUnavailable) {
		t.Fatalf("Expected source unavailable, got %v", err)
	}
	if res != nil {
		t.Error("Expected no result")
	}
	if opened {
		t.Error("Expected the destination to stay untouched")
	}
}

func TestRunDestinationUnavailable(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), Options{
		Sources:    testutil.Sources(),
		Load:       true,
		OutputDir:  filepath.Join(dir, "out"),
		ReportPath: filepath.Join(dir, "report.txt"),
		Open: func(ctx context.Context, cfg store.Config) (store.Store, error) {
			return nil, errors.New("connection refused")
		},
	})
	if etlerr.KindOf(err) != etlerr.DestinationUnavailable {
		t.Fatalf("Expected destination unavailable, got %v", err)
	}
	if res == nil {
		t.Fatal("Expected a result alongside the load error")
	}
	if res.Manifest == nil {
		t.Error("Expected the flat files to be written")
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "customers_cleaned.csv")); err != nil {
		t.Errorf("Expected cleaned customers file: %v", err)
	}
	body, _ := os.ReadFile(filepath.Join(dir, "report.txt"))
	if !strings.Contains(string(body), "Load: failed") {
		t.Errorf("Expected the report to record the failed load:\n%s", body)
	}
}

func TestRunNoSources(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	if !errors.Is(err, etlerr.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestRunSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleximart.db")
	cfg := store.Config{Driver: sqlstore.DriverSQLite, Database: path}

	// A second run replaces the first wholesale.
	for i := 0; i < 2; i++ {
		res, err := Run(context.Background(), Options{Sources: testutil.Sources(), Load: true, Store: cfg})
		if err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
		if res.Loaded != 12 {
			t.Errorf("Run %d: expected 12 loaded rows, got %d", i, res.Loaded)
		}
	}

	st, err := sqlstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	db := st.(*sqlstore.Store).DB()

	var customers, runs int
	if err := db.Get(&customers, "SELECT COUNT(*) FROM customers"); err != nil {
		t.Fatal(err)
	}
	if err := db.Get(&runs, "SELECT COUNT(*) FROM etl_runs"); err != nil {
		t.Fatal(err)
	}
	if customers != 3 {
		t.Errorf("Expected 3 customers after two runs, got %d", customers)
	}
	if runs != 2 {
		t.Errorf("Expected 2 run history rows, got %d", runs)
	}
}

func TestSummaryReDerivable(t *testing.T) {
	res, err := Run(context.Background(), Options{Sources: testutil.Sources()})
	if err != nil {
		t.Fatal(err)
	}
	again := report.Summarize(res.Log)
	if len(again.Kinds) != len(res.Summary.Kinds) {
		t.Fatalf("Expected %d kinds, got %d", len(res.Summary.Kinds), len(again.Kinds))
	}
	for i := range again.Kinds {
		if again.Kinds[i].Out != res.Summary.Kinds[i].Out || again.Kinds[i].Modified != res.Summary.Kinds[i].Modified {
			t.Errorf("Kind %s differs when re-derived from the log", again.Kinds[i].Kind)
		}
	}
}
