package transform

import "github.com/fleximart/fleximart-etl/internal/model"

// Action says what happens to a row whose field is missing or invalid.
type Action int

const (
	// DropRow removes the row from the run.
	DropRow Action = iota
	// ClearValue keeps the row with the field unset.
	ClearValue
	// UseDefault substitutes FieldPolicy.Default.
	UseDefault
)

func (a Action) String() string {
	switch a {
	case DropRow:
		return "drop"
	case ClearValue:
		return "clear"
	case UseDefault:
		return "default"
	default:
		return "unknown"
	}
}

// FieldType selects the rules that apply to a field.
type FieldType int

const (
	TypeKey      FieldType = iota // preassigned surrogate key
	TypeCode                      // natural identifier, trimmed only
	TypeText                      // free text
	TypeCategory                  // title-cased text
	TypeEmail
	TypePhone
	TypeDate
	TypeMoney
	TypeCount
	TypeStatus
)

// FieldPolicy is the cleaning policy of one column.
type FieldPolicy struct {
	Column  string
	Type    FieldType
	Missing Action
	Invalid Action
	Default string
	// Min is the smallest accepted value of a count field.
	Min int64
}

// Required reports whether a missing value drops the row.
func (p FieldPolicy) Required() bool {
	return p.Missing == DropRow
}

var (
	optionalKey = FieldPolicy{Column: "id", Type: TypeKey, Missing: ClearValue, Invalid: ClearValue}
	status      = FieldPolicy{Column: "status", Type: TypeStatus, Missing: UseDefault, Invalid: UseDefault, Default: string(model.StatusPending)}
)

func required(col string, typ FieldType) FieldPolicy {
	return FieldPolicy{Column: col, Type: typ, Missing: DropRow, Invalid: DropRow}
}

func optional(col string, typ FieldType) FieldPolicy {
	return FieldPolicy{Column: col, Type: typ, Missing: ClearValue, Invalid: ClearValue}
}

// policies is the per-kind field policy table. Columns not listed pass
// through untouched and are ignored when records are built.
var policies = map[model.Kind][]FieldPolicy{
	model.KindCustomers: {
		optionalKey,
		optional("customer_id", TypeCode),
		required("first_name", TypeText),
		required("last_name", TypeText),
		required("email", TypeEmail),
		optional("phone", TypePhone),
		optional("city", TypeText),
		optional("registration_date", TypeDate),
	},
	model.KindProducts: {
		optionalKey,
		required("product_id", TypeCode),
		required("product_name", TypeText),
		required("category", TypeCategory),
		required("price", TypeMoney),
		{Column: "stock_quantity", Type: TypeCount, Missing: UseDefault, Invalid: DropRow, Default: "0", Min: 0},
	},
	model.KindOrders: {
		optionalKey,
		required("order_id", TypeCode),
		required("customer_id", TypeCode),
		required("order_date", TypeDate),
		// Recomputed from the order's items once they are known.
		optional("total_amount", TypeMoney),
		status,
	},
	model.KindOrderItems: {
		optionalKey,
		optional("order_item_id", TypeCode),
		required("order_id", TypeCode),
		required("product_id", TypeCode),
		{Column: "quantity", Type: TypeCount, Missing: DropRow, Invalid: DropRow, Min: 1},
		required("unit_price", TypeMoney),
		// Recomputed as quantity x unit_price.
		optional("subtotal", TypeMoney),
	},
	model.KindSales: {
		required("transaction_id", TypeCode),
		required("customer_id", TypeCode),
		required("product_id", TypeCode),
		{Column: "quantity", Type: TypeCount, Missing: DropRow, Invalid: DropRow, Min: 1},
		required("unit_price", TypeMoney),
		required("transaction_date", TypeDate),
		status,
	},
}

// Policies returns the field policies of a kind in column order.
func Policies(kind model.Kind) []FieldPolicy {
	return policies[kind]
}

// PolicyFor returns the policy of one column.
func PolicyFor(kind model.Kind, column string) (FieldPolicy, bool) {
	for _, p := range policies[kind] {
		if p.Column == column {
			return p, true
		}
	}
	return FieldPolicy{}, false
}
