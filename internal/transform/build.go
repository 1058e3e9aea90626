package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/model"
)

var moneyReplacer = strings.NewReplacer("₹", "", "$", "", "Rs.", "", ",", "", " ", "")

// build converts a cleaned row into its typed record. Every value has
// passed the stages, so parse failures cannot occur here.
func build(kind model.Kind, row model.Row) model.Record {
	switch kind {
	case model.KindCustomers:
		c := &model.Customer{
			ID:         key(row),
			CustomerID: row.Get("customer_id"),
			FirstName:  row.Get("first_name"),
			LastName:   row.Get("last_name"),
			Email:      row.Get("email"),
			Phone:      optString(row, "phone"),
			City:       optString(row, "city"),
		}
		if row.Has("registration_date") {
			d := date(row.Get("registration_date"))
			c.RegistrationDate = &d
		}
		return c
	case model.KindProducts:
		return &model.Product{
			ID:            key(row),
			ProductID:     row.Get("product_id"),
			Name:          row.Get("product_name"),
			Category:      row.Get("category"),
			Price:         money(row.Get("price")),
			StockQuantity: atoi(row.Get("stock_quantity")),
		}
	case model.KindOrders:
		return &model.Order{
			ID:          key(row),
			OrderID:     row.Get("order_id"),
			CustomerRef: row.Get("customer_id"),
			OrderDate:   date(row.Get("order_date")),
			TotalAmount: money(row.Get("total_amount")),
			Status:      model.Status(row.Get("status")),
		}
	case model.KindOrderItems:
		return &model.OrderItem{
			ID:         key(row),
			ItemID:     row.Get("order_item_id"),
			OrderRef:   row.Get("order_id"),
			ProductRef: row.Get("product_id"),
			Quantity:   atoi(row.Get("quantity")),
			UnitPrice:  money(row.Get("unit_price")),
			Subtotal:   money(row.Get("subtotal")),
		}
	}
	panic("transform: no record type for kind " + string(kind))
}

func key(row model.Row) int64 {
	n, _ := strconv.ParseInt(row.Get("id"), 10, 64)
	return n
}

func optString(row model.Row, col string) *string {
	if !row.Has(col) {
		return nil
	}
	v := row.Get(col)
	return &v
}

func money(s string) decimal.Decimal {
	d, _ := parseMoney(s)
	return d
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func date(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}
