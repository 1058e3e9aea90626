package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date form of every date column.
const DateLayout = "2006-01-02"

// Record is a cleaned, typed row of a destination kind.
type Record interface {
	Kind() Kind
	// Key is the surrogate key, zero until assigned.
	Key() int64
	SetKey(int64)
	// NaturalKey is the business identity the destination is queried by.
	NaturalKey() string
	// LookupKeys lists every natural identifier children may reference
	// this record by. It always includes NaturalKey.
	LookupKeys() []string
	// Refs lists the parents this record points at.
	Refs() []Ref
	// Row is the canonical text form, as written to the flat files.
	Row() Row
	// Values are the destination column values in Columns(Kind()) order.
	Values() []any
}

// Ref is an unresolved foreign key. Key points at the field that receives
// the parent's surrogate key once resolved.
type Ref struct {
	Kind       Kind
	NaturalKey string
	Key        *int64
}

// destColumns are the destination table columns per kind. The first
// column is always the surrogate key.
var destColumns = map[Kind][]string{
	KindCustomers:  {"customer_id", "source_key", "first_name", "last_name", "email", "phone", "city", "registration_date"},
	KindProducts:   {"product_id", "source_key", "product_name", "category", "price", "stock_quantity"},
	KindOrders:     {"order_id", "source_key", "customer_id", "order_date", "total_amount", "status"},
	KindOrderItems: {"order_item_id", "source_key", "order_id", "product_id", "quantity", "unit_price", "subtotal"},
}

// Columns returns the destination columns of a kind.
func Columns(k Kind) []string {
	return destColumns[k]
}

// LookupColumn returns the destination column holding NaturalKey.
func LookupColumn(k Kind) string {
	if k == KindCustomers {
		return "email"
	}
	return "source_key"
}

// Customer is a cleaned customer.
type Customer struct {
	ID               int64
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Phone            *string
	City             *string
	RegistrationDate *time.Time
}

func (c *Customer) Kind() Kind         { return KindCustomers }
func (c *Customer) Key() int64         { return c.ID }
func (c *Customer) SetKey(k int64)     { c.ID = k }
func (c *Customer) NaturalKey() string { return c.Email }
func (c *Customer) Refs() []Ref        { return nil }

func (c *Customer) LookupKeys() []string {
	if c.CustomerID == "" || c.CustomerID == c.Email {
		return []string{c.Email}
	}
	return []string{c.Email, c.CustomerID}
}

func (c *Customer) Row() Row {
	return Row{
		"id":                keyText(c.ID),
		"customer_id":       c.CustomerID,
		"first_name":        c.FirstName,
		"last_name":         c.LastName,
		"email":             c.Email,
		"phone":             strText(c.Phone),
		"city":              strText(c.City),
		"registration_date": dateText(c.RegistrationDate),
	}
}

func (c *Customer) Values() []any {
	return []any{c.ID, nullable(c.CustomerID), c.FirstName, c.LastName,
		c.Email, strValue(c.Phone), strValue(c.City), dateValue(c.RegistrationDate)}
}

// Product is a cleaned product.
type Product struct {
	ID            int64
	ProductID     string
	Name          string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
}

func (p *Product) Kind() Kind           { return KindProducts }
func (p *Product) Key() int64           { return p.ID }
func (p *Product) SetKey(k int64)       { p.ID = k }
func (p *Product) NaturalKey() string   { return p.ProductID }
func (p *Product) LookupKeys() []string { return []string{p.ProductID} }
func (p *Product) Refs() []Ref          { return nil }

func (p *Product) Row() Row {
	return Row{
		"id":             keyText(p.ID),
		"product_id":     p.ProductID,
		"product_name":   p.Name,
		"category":       p.Category,
		"price":          p.Price.StringFixed(2),
		"stock_quantity": strconv.Itoa(p.StockQuantity),
	}
}

func (p *Product) Values() []any {
	return []any{p.ID, p.ProductID, p.Name, p.Category, p.Price, p.StockQuantity}
}

// Order is a cleaned order header.
type Order struct {
	ID          int64
	OrderID     string
	CustomerRef string
	CustomerKey int64
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Status      Status
}

func (o *Order) Kind() Kind           { return KindOrders }
func (o *Order) Key() int64           { return o.ID }
func (o *Order) SetKey(k int64)       { o.ID = k }
func (o *Order) NaturalKey() string   { return o.OrderID }
func (o *Order) LookupKeys() []string { return []string{o.OrderID} }

func (o *Order) Refs() []Ref {
	return []Ref{{Kind: KindCustomers, NaturalKey: o.CustomerRef, Key: &o.CustomerKey}}
}

func (o *Order) Row() Row {
	return Row{
		"id":           keyText(o.ID),
		"order_id":     o.OrderID,
		"customer_id":  o.CustomerRef,
		"customer_key": keyText(o.CustomerKey),
		"order_date":   o.OrderDate.Format(DateLayout),
		"total_amount": o.TotalAmount.StringFixed(2),
		"status":       string(o.Status),
	}
}

func (o *Order) Values() []any {
	return []any{o.ID, o.OrderID, o.CustomerKey, o.OrderDate, o.TotalAmount, string(o.Status)}
}

// OrderItem is a cleaned order line.
type OrderItem struct {
	ID         int64
	ItemID     string
	OrderRef   string
	ProductRef string
	OrderKey   int64
	ProductKey int64
	Quantity   int
	UnitPrice  decimal.Decimal
	Subtotal   decimal.Decimal
}

func (i *OrderItem) Kind() Kind     { return KindOrderItems }
func (i *OrderItem) Key() int64     { return i.ID }
func (i *OrderItem) SetKey(k int64) { i.ID = k }

// NaturalKey is the item id, or order/product when the source has none.
func (i *OrderItem) NaturalKey() string {
	if i.ItemID != "" {
		return i.ItemID
	}
	return i.OrderRef + "/" + i.ProductRef
}

func (i *OrderItem) LookupKeys() []string { return []string{i.NaturalKey()} }

func (i *OrderItem) Refs() []Ref {
	return []Ref{
		{Kind: KindOrders, NaturalKey: i.OrderRef, Key: &i.OrderKey},
		{Kind: KindProducts, NaturalKey: i.ProductRef, Key: &i.ProductKey},
	}
}

func (i *OrderItem) Row() Row {
	return Row{
		"id":            keyText(i.ID),
		"order_item_id": i.ItemID,
		"order_id":      i.OrderRef,
		"order_key":     keyText(i.OrderKey),
		"product_id":    i.ProductRef,
		"product_key":   keyText(i.ProductKey),
		"quantity":      strconv.Itoa(i.Quantity),
		"unit_price":    i.UnitPrice.StringFixed(2),
		"subtotal":      i.Subtotal.StringFixed(2),
	}
}

func (i *OrderItem) Values() []any {
	return []any{i.ID, i.NaturalKey(), i.OrderKey, i.ProductKey, i.Quantity, i.UnitPrice, i.Subtotal}
}

// Sale is a cleaned sales transaction. Sales are split into orders and
// order items and never loaded directly.
type Sale struct {
	TransactionID string
	CustomerRef   string
	ProductRef    string
	Quantity      int
	UnitPrice     decimal.Decimal
	Date          time.Time
	Status        Status
}

// Row returns the canonical text form of the sale.
func (s *Sale) Row() Row {
	return Row{
		"transaction_id":   s.TransactionID,
		"customer_id":      s.CustomerRef,
		"product_id":       s.ProductRef,
		"quantity":         strconv.Itoa(s.Quantity),
		"unit_price":       s.UnitPrice.StringFixed(2),
		"transaction_date": s.Date.Format(DateLayout),
		"status":           string(s.Status),
	}
}

// Dataset holds the cleaned records of every destination kind.
type Dataset map[Kind][]Record

// Typed returns the records in recs that have concrete type T.
func Typed[T Record](recs []Record) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		if t, ok := r.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of records per kind.
func (d Dataset) Count() map[Kind]int {
	out := make(map[Kind]int, len(d))
	for k, recs := range d {
		out[k] = len(recs)
	}
	return out
}

func keyText(k int64) string {
	if k == 0 {
		return ""
	}
	return strconv.FormatInt(k, 10)
}

func strText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// strValue and friends return an untyped nil for absent values so that
// drivers see NULL rather than a typed nil pointer.
func strValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
