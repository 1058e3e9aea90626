//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package model defines the record kinds that flow through the pipeline.
package model

import "fmt"

// Kind names an entity type. Destination kinds map 1:1 to tables.
type Kind string

const (
	KindCustomers  Kind = "customers"
	KindProducts   Kind = "products"
	KindOrders     Kind = "orders"
	KindOrderItems Kind = "order_items"

	// KindSales is a source-only kind. Sales rows are cleaned and then
	// split into orders and order items; they are never loaded as such.
	KindSales Kind = "sales"
)

// LoadOrder is the foreign-key dependency order of the destination kinds.
// Parents always precede children.
var LoadOrder = []Kind{KindCustomers, KindProducts, KindOrders, KindOrderItems}

// TransformOrder is the order in which sources are cleaned. Sales sit
// before orders because they produce orders and order items.
var TransformOrder = []Kind{KindCustomers, KindProducts, KindSales, KindOrders, KindOrderItems}

// DependsOn returns the kinds this kind references.
func (k Kind) DependsOn() []Kind {
	switch k {
	case KindOrders:
		return []Kind{KindCustomers}
	case KindOrderItems:
		return []Kind{KindOrders, KindProducts}
	case KindSales:
		return []Kind{KindCustomers, KindProducts}
	default:
		return nil
	}
}

// ParseKind converts a name such as "order_items" into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCustomers, KindProducts, KindOrders, KindOrderItems, KindSales:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind: %s", s)
}
