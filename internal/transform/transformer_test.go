package transform

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/model"
)

func countDrops(log *model.Log, reason model.Reason) int {
	n := 0
	for _, d := range log.Drops {
		if d.Reason == reason {
			n++
		}
	}
	return n
}

func countChanges(log *model.Log, rule model.Rule) int {
	n := 0
	for _, c := range log.Changes {
		if c.Rule == rule {
			n++
		}
	}
	return n
}

func TestDuplicateEmailFirstOccurrenceWins(t *testing.T) {
	set := model.RecordSet{Kind: model.KindCustomers, Rows: []model.Row{
		{"first_name": "Asha", "last_name": "Rao", "email": "a@x.com", "phone": "9876543210"},
		{"first_name": "Asha", "last_name": "Rao", "email": "a@x.com", "phone": "invalid"},
	}}

	recs, log := New(Options{}).Transform(set)

	if len(recs) != 1 {
		t.Fatalf("Expected 1 customer, got %d", len(recs))
	}
	c := recs[0].(*model.Customer)
	if c.Phone == nil || *c.Phone != "+91-9876543210" {
		t.Errorf("Expected phone +91-9876543210, got %v", c.Phone)
	}
	if got := countDrops(log, model.ReasonDuplicate); got != 1 {
		t.Errorf("Expected 1 duplicate, got %d", got)
	}
}

func TestDuplicateCountIsInputMinusOne(t *testing.T) {
	var rows []model.Row
	for i := 0; i < 5; i++ {
		rows = append(rows, model.Row{"first_name": "Ravi", "last_name": "Rao", "email": " Ravi@Example.com "})
	}
	recs, log := New(Options{}).Transform(model.RecordSet{Kind: model.KindCustomers, Rows: rows})

	if len(recs) != 1 {
		t.Fatalf("Expected 1 customer, got %d", len(recs))
	}
	if got := countDrops(log, model.ReasonDuplicate); got != 4 {
		t.Errorf("Expected 4 duplicates, got %d", got)
	}
	if email := recs[0].(*model.Customer).Email; email != "ravi@example.com" {
		t.Errorf("Expected normalized email, got %q", email)
	}
}

func TestStandardizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "+91-9876543210", true},
		{"+91 98765 43210", "+91-9876543210", true},
		{"+91-9876543210", "+91-9876543210", true},
		{"09876543210", "+91-9876543210", true},
		{"(987) 654-3210", "+91-9876543210", true},
		{"0091 9876543210", "+91-9876543210", true},
		{"12345", "", false},
		{"invalid", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := StandardizePhone(tt.in, "91")
			if ok != tt.ok || got != tt.want {
				t.Errorf("Expected %q/%v, got %q/%v", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{"15/01/2024", "2024-01-15"},
		{"01-22-2024", "2024-01-22"},
		{"15-04-2023", "2023-04-15"},
		{"02/13/2024", "2024-02-13"},
		{"2024/3/5", "2024-03-05"},
		{"5 Mar 2024", "2024-03-05"},
		{"not a date", ""},
		{"31/31/2024", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseDate(tt.in)
			got := ""
			if ok {
				got = d.Format(model.DateLayout)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"electronics":      "Electronics",
		"  ELECTRONICS ":   "Electronics",
		"home  & kitchen":  "Home & Kitchen",
		"Fashion":          "Fashion",
		"sports and games": "Sports And Games",
	}
	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSubtotalRecomputed(t *testing.T) {
	set := model.RecordSet{Kind: model.KindOrderItems, Rows: []model.Row{
		{"order_id": "O1", "product_id": "P1", "quantity": "2", "unit_price": "100.00", "subtotal": "999.00"},
	}}

	recs, log := New(Options{}).Transform(set)

	if len(recs) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(recs))
	}
	item := recs[0].(*model.OrderItem)
	if item.Subtotal.StringFixed(2) != "200.00" {
		t.Errorf("Expected subtotal 200.00, got %s", item.Subtotal.StringFixed(2))
	}
	if got := countChanges(log, model.RuleDerived); got != 1 {
		t.Errorf("Expected 1 derived change, got %d", got)
	}
}

func TestSubtotalBankersRounding(t *testing.T) {
	set := model.RecordSet{Kind: model.KindOrderItems, Rows: []model.Row{
		{"order_id": "O1", "product_id": "P1", "quantity": "3", "unit_price": "10.005"},
	}}

	recs, log := New(Options{}).Transform(set)

	item := recs[0].(*model.OrderItem)
	if item.UnitPrice.StringFixed(2) != "10.00" {
		t.Errorf("Expected unit price 10.00, got %s", item.UnitPrice.StringFixed(2))
	}
	if !item.Subtotal.Equal(decimal.NewFromInt(3).Mul(item.UnitPrice)) {
		t.Errorf("Expected subtotal quantity x unit price, got %s", item.Subtotal)
	}
	if got := countChanges(log, model.RuleNumber); got != 1 {
		t.Errorf("Expected 1 number change, got %d", got)
	}
}

func TestNegativePriceDropped(t *testing.T) {
	set := model.RecordSet{Kind: model.KindProducts, Rows: []model.Row{
		{"product_id": "P1", "product_name": "Pen", "category": "Stationery", "price": "-10"},
		{"product_id": "P2", "product_name": "Ink", "category": "Stationery", "price": "12.5"},
	}}

	recs, log := New(Options{}).Transform(set)

	if len(recs) != 1 || recs[0].NaturalKey() != "P2" {
		t.Fatalf("Expected only P2 to survive, got %d records", len(recs))
	}
	if got := countDrops(log, model.ReasonInvalidValue); got != 1 {
		t.Errorf("Expected 1 invalid value drop, got %d", got)
	}
	if p := recs[0].(*model.Product); p.StockQuantity != 0 {
		t.Errorf("Expected stock default 0, got %d", p.StockQuantity)
	}
}

func TestMissingAndInvalidPolicies(t *testing.T) {
	tests := []struct {
		name   string
		kind   model.Kind
		row    model.Row
		reason model.Reason
	}{
		{"missing email", model.KindCustomers, model.Row{"first_name": "A", "last_name": "Rao", "email": " "}, model.ReasonMissingRequired},
		{"bad email", model.KindCustomers, model.Row{"first_name": "A", "last_name": "Rao", "email": "not-an-email"}, model.ReasonInvalidValue},
		{"missing last name", model.KindCustomers, model.Row{"first_name": "Asha", "last_name": "", "email": "a@x.com"}, model.ReasonMissingRequired},
		{"missing category", model.KindProducts, model.Row{"product_id": "P1", "product_name": "Pen", "category": " ", "price": "10"}, model.ReasonMissingRequired},
		{"bad order date", model.KindOrders, model.Row{"order_id": "O1", "customer_id": "C1", "order_date": "31/31/2024"}, model.ReasonUnparseableDate},
		{"missing order customer", model.KindOrders, model.Row{"order_id": "O1", "order_date": "2024-01-01"}, model.ReasonMissingRequired},
		{"zero quantity", model.KindOrderItems, model.Row{"order_id": "O1", "product_id": "P1", "quantity": "0", "unit_price": "1"}, model.ReasonInvalidValue},
		{"fractional quantity", model.KindOrderItems, model.Row{"order_id": "O1", "product_id": "P1", "quantity": "1.5", "unit_price": "1"}, model.ReasonInvalidValue},
		{"negative stock", model.KindProducts, model.Row{"product_id": "P1", "product_name": "Pen", "category": "Stationery", "price": "1", "stock_quantity": "-3"}, model.ReasonInvalidValue},
		{"missing sale date", model.KindSales, model.Row{"transaction_id": "T1", "customer_id": "C1", "product_id": "P1", "quantity": "1", "unit_price": "1"}, model.ReasonMissingRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, log := New(Options{}).clean(model.RecordSet{Kind: tt.kind, Rows: []model.Row{tt.row}})
			if len(log.Drops) != 1 {
				t.Fatalf("Expected 1 drop, got %d", len(log.Drops))
			}
			if log.Drops[0].Reason != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, log.Drops[0].Reason)
			}
		})
	}
}

func TestOptionalFieldsCleared(t *testing.T) {
	set := model.RecordSet{Kind: model.KindCustomers, Rows: []model.Row{
		{"first_name": "A", "last_name": "Rao", "email": "a@x.com", "phone": "123", "registration_date": "someday"},
	}}

	recs, log := New(Options{}).Transform(set)

	if len(recs) != 1 {
		t.Fatalf("Expected customer to survive, got %d", len(recs))
	}
	c := recs[0].(*model.Customer)
	if c.Phone != nil || c.RegistrationDate != nil {
		t.Errorf("Expected phone and registration date cleared, got %v %v", c.Phone, c.RegistrationDate)
	}
	if got := countChanges(log, model.RulePhone); got != 1 {
		t.Errorf("Expected cleared phone counted as phone change, got %d", got)
	}
}

func TestStatusDefaults(t *testing.T) {
	set := model.RecordSet{Kind: model.KindOrders, Rows: []model.Row{
		{"order_id": "O1", "customer_id": "C1", "order_date": "2024-01-01"},
		{"order_id": "O2", "customer_id": "C1", "order_date": "2024-01-01", "status": "lost"},
		{"order_id": "O3", "customer_id": "C1", "order_date": "2024-01-01", "status": "shipped"},
	}}

	recs, _ := New(Options{}).Transform(set)

	want := []model.Status{model.StatusPending, model.StatusPending, model.StatusShipped}
	for i, r := range recs {
		if got := r.(*model.Order).Status; got != want[i] {
			t.Errorf("Order %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestCountryCode(t *testing.T) {
	set := model.RecordSet{Kind: model.KindCustomers, Rows: []model.Row{
		{"first_name": "A", "last_name": "Rao", "email": "a@x.com", "phone": "1 415 555 0100"},
	}}
	recs, _ := New(Options{CountryCode: "1"}).Transform(set)

	if p := recs[0].(*model.Customer).Phone; p == nil || *p != "+1-4155550100" {
		t.Errorf("Expected +1-4155550100, got %v", p)
	}
}

func TestTransformIsIdempotent(t *testing.T) {
	inputs := []model.RecordSet{
		{Kind: model.KindCustomers, Rows: []model.Row{
			{"customer_id": " C001", "first_name": " rahul ", "last_name": "Sharma", "email": "Rahul@X.com", "phone": "98765-43210", "city": "  Mumbai", "registration_date": "15/01/2024"},
			{"customer_id": "C002", "first_name": "Priya", "last_name": "Rao", "email": "priya@x.com", "phone": "bad"},
		}},
		{Kind: model.KindProducts, Rows: []model.Row{
			{"product_id": "P001", "product_name": "Laptop", "category": "ELECTRONICS", "price": "45999", "stock_quantity": ""},
		}},
		{Kind: model.KindOrders, Rows: []model.Row{
			{"order_id": "O1", "customer_id": "C001", "order_date": "01-22-2024", "status": "completed"},
		}},
		{Kind: model.KindOrderItems, Rows: []model.Row{
			{"order_id": "O1", "product_id": "P001", "quantity": "2", "unit_price": "45999", "subtotal": "1"},
		}},
	}

	tr := New(Options{})
	for _, set := range inputs {
		t.Run(string(set.Kind), func(t *testing.T) {
			recs, first := tr.Transform(set)
			if len(first.Changes) == 0 {
				t.Fatal("Expected the dirty input to produce changes")
			}

			again := model.RecordSet{Kind: set.Kind}
			for _, r := range recs {
				again.Rows = append(again.Rows, r.Row())
			}
			recs2, second := tr.Transform(again)

			if len(second.Changes) != 0 {
				t.Errorf("Expected no changes on second pass, got %+v", second.Changes)
			}
			if len(second.Drops) != 0 || len(recs2) != len(recs) {
				t.Errorf("Expected no drops on second pass, got %+v", second.Drops)
			}
		})
	}
}

func TestSplitSales(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("100.00")
	sales := []*model.Sale{
		{TransactionID: "T1", CustomerRef: "C2", ProductRef: "P1", Quantity: 1, UnitPrice: price, Date: day, Status: model.StatusPending},
		{TransactionID: "T2", CustomerRef: "C2", ProductRef: "P2", Quantity: 2, UnitPrice: price, Date: day, Status: model.StatusCompleted},
		{TransactionID: "T3", CustomerRef: "C1", ProductRef: "P1", Quantity: 1, UnitPrice: price, Date: day, Status: model.StatusShipped},
		{TransactionID: "T4", CustomerRef: "C1", ProductRef: "P1", Quantity: 1, UnitPrice: price, Date: day.AddDate(0, 0, 1), Status: model.StatusShipped},
	}

	orders, items, log := SplitSales(sales)

	if len(orders) != 3 || len(items) != 4 {
		t.Fatalf("Expected 3 orders and 4 items, got %d and %d", len(orders), len(items))
	}
	first := orders[0].(*model.Order)
	if first.OrderID != "C1@2024-01-15" {
		t.Errorf("Expected orders sorted by customer then date, got %s", first.OrderID)
	}
	c2 := orders[2].(*model.Order)
	if c2.Status != model.StatusPending {
		t.Errorf("Expected tie to go to first seen status, got %s", c2.Status)
	}
	if c2.TotalAmount.StringFixed(2) != "300.00" {
		t.Errorf("Expected total 300.00, got %s", c2.TotalAmount.StringFixed(2))
	}
	if log.RowsIn[model.KindOrders] != 3 || log.RowsIn[model.KindOrderItems] != 4 {
		t.Errorf("Expected derived rows counted as input, got %v", log.RowsIn)
	}
}

func TestFinalizeTotals(t *testing.T) {
	orders := []model.Record{
		&model.Order{OrderID: "O1", TotalAmount: decimal.RequireFromString("999")},
		&model.Order{OrderID: "O2", TotalAmount: decimal.RequireFromString("10")},
	}
	items := []model.Record{
		&model.OrderItem{OrderRef: "O1", Subtotal: decimal.RequireFromString("200.00")},
		&model.OrderItem{OrderRef: "O1", Subtotal: decimal.RequireFromString("50.50")},
	}
	log := model.NewLog()

	FinalizeTotals(orders, items, log)

	if got := orders[0].(*model.Order).TotalAmount.StringFixed(2); got != "250.50" {
		t.Errorf("Expected O1 total 250.50, got %s", got)
	}
	if got := orders[1].(*model.Order).TotalAmount.StringFixed(2); got != "0.00" {
		t.Errorf("Expected O2 total 0.00, got %s", got)
	}
	if got := countChanges(log, model.RuleDerived); got != 2 {
		t.Errorf("Expected 2 derived changes, got %d", got)
	}
}

func TestPolicyTable(t *testing.T) {
	p, ok := PolicyFor(model.KindProducts, "stock_quantity")
	if !ok || p.Missing != UseDefault || p.Default != "0" {
		t.Errorf("Expected stock_quantity to default to 0, got %+v", p)
	}
	p, ok = PolicyFor(model.KindCustomers, "email")
	if !ok || !p.Required() {
		t.Errorf("Expected email to be required, got %+v", p)
	}
	for _, col := range []struct {
		kind   model.Kind
		column string
	}{
		{model.KindCustomers, "first_name"},
		{model.KindCustomers, "last_name"},
		{model.KindProducts, "product_name"},
		{model.KindProducts, "category"},
	} {
		p, ok := PolicyFor(col.kind, col.column)
		if !ok || !p.Required() {
			t.Errorf("Expected %s.%s to be required, got %+v", col.kind, col.column, p)
		}
	}
	if _, ok := PolicyFor(model.KindCustomers, "shoe_size"); ok {
		t.Error("Expected no policy for unknown column")
	}
}

func TestRequiredNamesAndCategory(t *testing.T) {
	tr := New(Options{})

	recs, log := tr.Transform(model.RecordSet{Kind: model.KindCustomers, Rows: []model.Row{
		{"first_name": "Asha", "last_name": "", "email": "a@x.com"},
		{"first_name": "Ravi", "last_name": " kumar ", "email": "r@x.com"},
	}})
	if len(recs) != 1 {
		t.Fatalf("Expected 1 customer, got %d", len(recs))
	}
	if got := countDrops(log, model.ReasonMissingRequired); got != 1 {
		t.Errorf("Expected 1 missing required drop, got %d", got)
	}
	if c := recs[0].(*model.Customer); c.LastName != "kumar" {
		t.Errorf("Expected last name kumar, got %q", c.LastName)
	}

	recs, log = tr.Transform(model.RecordSet{Kind: model.KindProducts, Rows: []model.Row{
		{"product_id": "P1", "product_name": "Pen", "category": "", "price": "10"},
		{"product_id": "P2", "product_name": "Ink", "category": "stationery", "price": "10"},
	}})
	if len(recs) != 1 || recs[0].NaturalKey() != "P2" {
		t.Fatalf("Expected only P2 to survive, got %d records", len(recs))
	}
	if got := countDrops(log, model.ReasonMissingRequired); got != 1 {
		t.Errorf("Expected 1 missing required drop, got %d", got)
	}
	if p := recs[0].(*model.Product); p.Category != "Stationery" {
		t.Errorf("Expected category Stationery, got %q", p.Category)
	}
}

func TestNumberFormatChangesLogged(t *testing.T) {
	set := model.RecordSet{Kind: model.KindProducts, Rows: []model.Row{
		{"product_id": "P1", "product_name": "Kettle", "category": "Home", "price": "₹1,200", "stock_quantity": "5.0"},
		{"product_id": "P2", "product_name": "Mug", "category": "Home", "price": "250.00", "stock_quantity": "7"},
	}}

	recs, log := New(Options{}).Transform(set)

	if len(recs) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(recs))
	}
	if got := countChanges(log, model.RuleNumber); got != 2 {
		t.Errorf("Expected 2 number changes, got %d", got)
	}
	for _, c := range log.Changes {
		if c.Rule != model.RuleNumber {
			continue
		}
		if c.NaturalKey != "P1" {
			t.Errorf("Expected only P1 numbers to change, got %+v", c)
		}
		if c.Column == "price" && (c.Old != "₹1,200" || c.New != "1200.00") {
			t.Errorf("Expected price ₹1,200 -> 1200.00, got %q -> %q", c.Old, c.New)
		}
		if c.Column == "stock_quantity" && (c.Old != "5.0" || c.New != "5") {
			t.Errorf("Expected stock 5.0 -> 5, got %q -> %q", c.Old, c.New)
		}
	}
}
