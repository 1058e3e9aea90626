//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package transform cleans raw record sets into typed records.
//
// Rules run in a fixed order for every kind: deduplication, missing value
// handling, phone, date, text and category, value checks, derived fields.
// What a rule does with a missing or invalid value is decided by the
// field policy table in policy.go. Malformed rows never produce errors;
// they are dropped and recorded in the returned log.
package transform

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
)

// Options configures a Transformer.
type Options struct {
	// CountryCode is the phone country code, digits only.
	CountryCode string
}

// Transformer applies the cleaning rules. It is not safe for concurrent
// use.
type Transformer struct {
	cc       string
	validate *validator.Validate
}

// New creates a Transformer.
func New(opts Options) *Transformer {
	cc := opts.CountryCode
	if cc == "" {
		cc = DefaultCountryCode
	}
	return &Transformer{cc: cc, validate: validator.New()}
}

// Transform cleans a record set of a destination kind.
func (t *Transformer) Transform(set model.RecordSet) ([]model.Record, *model.Log) {
	rows, log := t.clean(set)

	recs := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, build(set.Kind, row))
	}
	return recs, log
}

// TransformSales cleans a sales record set.
func (t *Transformer) TransformSales(set model.RecordSet) ([]*model.Sale, *model.Log) {
	rows, log := t.clean(set)

	sales := make([]*model.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, &model.Sale{
			TransactionID: row.Get("transaction_id"),
			CustomerRef:   row.Get("customer_id"),
			ProductRef:    row.Get("product_id"),
			Quantity:      atoi(row.Get("quantity")),
			UnitPrice:     money(row.Get("unit_price")),
			Date:          date(row.Get("transaction_date")),
			Status:        model.Status(row.Get("status")),
		})
	}
	return sales, log
}

// work is one row moving through the stages.
type work struct {
	row     model.Row
	key     string
	dropped bool
}

type cleaner struct {
	t        *Transformer
	kind     model.Kind
	policies []FieldPolicy
	log      *model.Log
}

func (t *Transformer) clean(set model.RecordSet) ([]model.Row, *model.Log) {
	log := model.NewLog()
	log.In(set.Kind, len(set.Rows))

	c := &cleaner{t: t, kind: set.Kind, policies: Policies(set.Kind), log: log}
	rows := c.dedup(set.Rows)

	stages := []func(*work){c.missing, c.phone, c.date, c.text, c.values, c.derived}
	for _, stage := range stages {
		for _, w := range rows {
			if !w.dropped {
				stage(w)
			}
		}
	}

	out := make([]model.Row, 0, len(rows))
	for _, w := range rows {
		if !w.dropped {
			out = append(out, w.row)
		}
	}

	dropped := 0
	for _, d := range log.Drops {
		if d.Kind == set.Kind {
			dropped++
		}
	}
	logging.Info().
		Str("kind", string(set.Kind)).
		Int("rows_in", len(set.Rows)).
		Int("rows_out", len(out)).
		Int("dropped", dropped).
		Int("changes", len(log.Changes)).
		Msg("Transformed records")

	return out, log
}

// dedup keeps the first row of every identity. Rows without an identity
// are kept and left to the missing value stage.
func (c *cleaner) dedup(rows []model.Row) []*work {
	seen := make(map[string]bool, len(rows))
	out := make([]*work, 0, len(rows))
	for i, r := range rows {
		w := &work{row: r.Clone(), key: identity(c.kind, r)}
		if w.key == "" {
			w.key = "row " + strconv.Itoa(i+1)
			out = append(out, w)
			continue
		}
		if seen[w.key] {
			c.drop(w, model.ReasonDuplicate, "")
			continue
		}
		seen[w.key] = true
		out = append(out, w)
	}
	return out
}

func (c *cleaner) missing(w *work) {
	for _, p := range c.policies {
		if w.row.Has(p.Column) {
			continue
		}
		// Whitespace-only values count as null.
		if _, ok := w.row[p.Column]; ok {
			w.row[p.Column] = ""
		}
		switch p.Missing {
		case DropRow:
			c.drop(w, model.ReasonMissingRequired, p.Column)
			return
		case UseDefault:
			c.set(w, p.Column, p.Default, model.RuleDefault)
		}
	}
}

func (c *cleaner) phone(w *work) {
	for _, p := range c.present(w, TypePhone) {
		if v, ok := StandardizePhone(w.row[p.Column], c.t.cc); ok {
			c.set(w, p.Column, v, model.RulePhone)
		} else if c.invalid(w, p, model.RulePhone, model.ReasonInvalidValue) {
			return
		}
	}
}

func (c *cleaner) date(w *work) {
	for _, p := range c.present(w, TypeDate) {
		if d, ok := ParseDate(w.row[p.Column]); ok {
			c.set(w, p.Column, d.Format(model.DateLayout), model.RuleDate)
		} else if c.invalid(w, p, model.RuleDate, model.ReasonUnparseableDate) {
			return
		}
	}
}

func (c *cleaner) text(w *work) {
	for _, p := range c.policies {
		v, ok := w.row[p.Column]
		if !ok || v == "" {
			continue
		}
		switch p.Type {
		case TypeCode:
			c.set(w, p.Column, w.row.Get(p.Column), model.RuleText)
		case TypeText:
			c.set(w, p.Column, CleanText(v), model.RuleText)
		case TypeCategory:
			c.set(w, p.Column, TitleCase(v), model.RuleCategory)
		case TypeEmail:
			c.set(w, p.Column, NormalizeEmail(v), model.RuleEmail)
		}
	}
}

func (c *cleaner) values(w *work) {
	for _, p := range c.policies {
		v := w.row.Get(p.Column)
		if v == "" {
			continue
		}
		var ok bool
		switch p.Type {
		case TypeEmail:
			ok = c.t.validate.Var(v, "email") == nil
			if !ok && c.invalid(w, p, model.RuleEmail, model.ReasonInvalidValue) {
				return
			}
		case TypeMoney:
			var d decimal.Decimal
			d, ok = parseMoney(v)
			if !ok {
				if c.invalid(w, p, model.RuleNumber, model.ReasonInvalidValue) {
					return
				}
				continue
			}
			c.set(w, p.Column, d.RoundBank(2).StringFixed(2), model.RuleNumber)
		case TypeCount:
			var n int64
			n, ok = parseCount(v, p.Min)
			if !ok {
				if c.invalid(w, p, model.RuleNumber, model.ReasonInvalidValue) {
					return
				}
				continue
			}
			c.set(w, p.Column, strconv.FormatInt(n, 10), model.RuleNumber)
		case TypeKey:
			var n int64
			n, ok = parseCount(v, 1)
			if !ok {
				c.invalid(w, p, model.RuleNumber, model.ReasonInvalidValue)
				continue
			}
			c.set(w, p.Column, strconv.FormatInt(n, 10), model.RuleNumber)
		case TypeStatus:
			var st model.Status
			st, ok = model.ParseStatus(v)
			if ok {
				c.set(w, p.Column, string(st), model.RuleStatus)
			} else {
				c.invalid(w, p, model.RuleStatus, model.ReasonInvalidValue)
			}
		}
	}
}

// derived recomputes item subtotals. Order totals need the surviving
// items and are finalized separately by FinalizeTotals.
func (c *cleaner) derived(w *work) {
	if c.kind != model.KindOrderItems {
		return
	}
	qty := decimal.NewFromInt(int64(atoi(w.row.Get("quantity"))))
	sub := qty.Mul(money(w.row.Get("unit_price"))).RoundBank(2)

	old, ok := parseMoney(w.row.Get("subtotal"))
	if ok && old.Equal(sub) {
		w.row["subtotal"] = sub.StringFixed(2)
		return
	}
	c.set(w, "subtotal", sub.StringFixed(2), model.RuleDerived)
}

// present returns the policies of type typ whose column has a value.
func (c *cleaner) present(w *work, typ FieldType) []FieldPolicy {
	var out []FieldPolicy
	for _, p := range c.policies {
		if p.Type == typ && w.row.Has(p.Column) {
			out = append(out, p)
		}
	}
	return out
}

// invalid applies the policy for an invalid value and reports whether the
// row was dropped.
func (c *cleaner) invalid(w *work, p FieldPolicy, rule model.Rule, reason model.Reason) bool {
	switch p.Invalid {
	case DropRow:
		c.drop(w, reason, fmt.Sprintf("%s=%q", p.Column, w.row.Get(p.Column)))
		return true
	case ClearValue:
		c.set(w, p.Column, "", rule)
	case UseDefault:
		c.set(w, p.Column, p.Default, rule)
	}
	return false
}

// set rewrites a value, logging a change when the text differs.
func (c *cleaner) set(w *work, col, v string, rule model.Rule) {
	old := w.row[col]
	if old == v {
		return
	}
	w.row[col] = v
	c.log.Change(model.Change{Kind: c.kind, NaturalKey: w.key, Rule: rule, Column: col, Old: old, New: v})
}

func (c *cleaner) drop(w *work, reason model.Reason, detail string) {
	w.dropped = true
	c.log.Drop(model.Drop{Kind: c.kind, NaturalKey: w.key, Reason: reason, Detail: detail})
	logging.Debug().
		Str("kind", string(c.kind)).
		Str("key", w.key).
		Str("reason", string(reason)).
		Str("detail", detail).
		Msg("Dropped row")
}

// parseMoney accepts a decimal with an optional currency symbol or
// thousands separators. Negative amounts are invalid.
func parseMoney(s string) (decimal.Decimal, bool) {
	s = moneyReplacer.Replace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseCount(s string, min int64) (int64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	n := d.IntPart()
	if n < min || !d.Equal(decimal.NewFromInt(n)) {
		return 0, false
	}
	return n, true
}
