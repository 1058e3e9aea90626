package transform

import (
	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/model"
)

// FinalizeTotals sets every order's total to the sum of its surviving
// items' subtotals, zero for an order without items. It must run after
// the loader has dropped orphaned items. Items are matched to orders by
// order natural key.
func FinalizeTotals(orders, items []model.Record, log *model.Log) {
	sums := make(map[string]decimal.Decimal)
	for _, it := range model.Typed[*model.OrderItem](items) {
		sums[it.OrderRef] = sums[it.OrderRef].Add(it.Subtotal)
	}

	for _, o := range model.Typed[*model.Order](orders) {
		total := sums[o.OrderID].RoundBank(2)
		if o.TotalAmount.Equal(total) {
			continue
		}
		log.Change(model.Change{
			Kind:       model.KindOrders,
			NaturalKey: o.OrderID,
			Rule:       model.RuleDerived,
			Column:     "total_amount",
			Old:        o.TotalAmount.StringFixed(2),
			New:        total.StringFixed(2),
		})
		o.TotalAmount = total
	}
}
