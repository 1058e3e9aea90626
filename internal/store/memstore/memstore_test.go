package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/store"
)

func TestReplaceRejectsBadRecords(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		kind model.Kind
		recs []model.Record
	}{
		{"unkeyed", model.KindProducts, []model.Record{&model.Product{ProductID: "P1"}}},
		{"duplicate key", model.KindProducts, []model.Record{
			&model.Product{ID: 1, ProductID: "P1"}, &model.Product{ID: 1, ProductID: "P2"},
		}},
		{"wrong kind", model.KindCustomers, []model.Record{&model.Product{ID: 1, ProductID: "P1"}}},
		{"dangling reference", model.KindOrders, []model.Record{&model.Order{ID: 1, OrderID: "O1", CustomerKey: 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New().ReplaceAll(ctx, tt.kind, tt.recs); err == nil {
				t.Error("Expected ReplaceAll to fail")
			}
		})
	}
}

func TestAtomicallyDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.ReplaceAll(ctx, model.KindProducts, []model.Record{&model.Product{ID: 1, ProductID: "P1"}}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(tx store.Store) error {
		if err := tx.ReplaceAll(ctx, model.KindProducts, nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected callback error, got %v", err)
	}

	if k, ok, _ := s.LookupKey(ctx, model.KindProducts, "P1"); !ok || k != 1 {
		t.Errorf("Expected P1 to survive the failed unit, got %d/%v", k, ok)
	}
}

func TestRecordRun(t *testing.T) {
	s := New()
	_ = s.RecordRun(context.Background(), store.Run{ID: "r1"})
	if runs := s.Runs(); len(runs) != 1 || runs[0].ID != "r1" {
		t.Errorf("Expected one run r1, got %+v", runs)
	}
}
