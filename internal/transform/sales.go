package transform

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/model"
)

// SplitSales turns cleaned sales into orders and order items. Sales of one
// customer on one day form one order whose status is the most frequent
// status of its sales, the earliest seen winning ties. Each sale becomes
// one item keyed by its transaction id.
//
// The returned log counts the derived rows as input of their kinds.
func SplitSales(sales []*model.Sale) (orders, items []model.Record, log *model.Log) {
	log = model.NewLog()

	type group struct {
		customer string
		date     string
		sales    []*model.Sale
	}
	groups := make(map[string]*group)
	var keys []string
	for _, s := range sales {
		day := s.Date.Format(model.DateLayout)
		k := OrderKeyForSale(s.CustomerRef, day)
		g, ok := groups[k]
		if !ok {
			g = &group{customer: s.CustomerRef, date: day}
			groups[k] = g
			keys = append(keys, k)
		}
		g.sales = append(g.sales, s)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := groups[keys[i]], groups[keys[j]]
		if a.customer != b.customer {
			return a.customer < b.customer
		}
		return a.date < b.date
	})

	for _, k := range keys {
		g := groups[k]
		total := decimal.Zero
		for _, s := range g.sales {
			sub := decimal.NewFromInt(int64(s.Quantity)).Mul(s.UnitPrice).RoundBank(2)
			total = total.Add(sub)
			items = append(items, &model.OrderItem{
				ItemID:     s.TransactionID,
				OrderRef:   k,
				ProductRef: s.ProductRef,
				Quantity:   s.Quantity,
				UnitPrice:  s.UnitPrice,
				Subtotal:   sub,
			})
		}
		orders = append(orders, &model.Order{
			OrderID:     k,
			CustomerRef: g.customer,
			OrderDate:   g.sales[0].Date,
			TotalAmount: total,
			Status:      modeStatus(g.sales),
		})
	}

	log.In(model.KindOrders, len(orders))
	log.In(model.KindOrderItems, len(items))
	return orders, items, log
}

// OrderKeyForSale is the natural key of the order a sale belongs to.
func OrderKeyForSale(customer, day string) string {
	return customer + "@" + day
}

func modeStatus(sales []*model.Sale) model.Status {
	counts := make(map[model.Status]int)
	best := model.StatusPending
	for _, s := range sales {
		counts[s.Status]++
	}
	top := 0
	for _, s := range sales {
		if n := counts[s.Status]; n > top {
			best, top = s.Status, n
		}
	}
	return best
}
