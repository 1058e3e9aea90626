package model

import "strings"

// Row is one tabular record keyed by column name. An empty or missing
// value means null.
type Row map[string]string

// Get returns the value of col with surrounding whitespace removed.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Has reports whether col holds a non-blank value.
func (r Row) Has(col string) bool {
	return r.Get(col) != ""
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordSet is an uncommitted set of raw rows for one kind, as produced
// by an extractor.
type RecordSet struct {
	Kind Kind
	Rows []Row
}

// Source columns per kind. These are the headers of the raw input files
// and, together with the key columns, of the cleaned flat files.
var sourceColumns = map[Kind][]string{
	KindCustomers:  {"id", "customer_id", "first_name", "last_name", "email", "phone", "city", "registration_date"},
	KindProducts:   {"id", "product_id", "product_name", "category", "price", "stock_quantity"},
	KindOrders:     {"id", "order_id", "customer_id", "customer_key", "order_date", "total_amount", "status"},
	KindOrderItems: {"id", "order_item_id", "order_id", "order_key", "product_id", "product_key", "quantity", "unit_price", "subtotal"},
	KindSales:      {"transaction_id", "customer_id", "product_id", "quantity", "unit_price", "transaction_date", "status"},
}

// RowColumns returns the ordered flat-file columns of a kind.
func RowColumns(k Kind) []string {
	return sourceColumns[k]
}
