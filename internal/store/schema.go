package store

import (
	"fmt"
	"strings"

	"github.com/fleximart/fleximart-etl/internal/model"
)

// createTableSQL holds the FlexiMart tables in dependency order. The DDL
// sticks to types PostgreSQL, MySQL and SQLite all accept.
var createTableSQL = []string{`
CREATE TABLE IF NOT EXISTS customers (
    customer_id       BIGINT PRIMARY KEY,
    source_key        VARCHAR(50),
    first_name        VARCHAR(50) NOT NULL,
    last_name         VARCHAR(50) NOT NULL,
    email             VARCHAR(100) NOT NULL UNIQUE,
    phone             VARCHAR(20),
    city              VARCHAR(50),
    registration_date DATE
)`, `
CREATE TABLE IF NOT EXISTS products (
    product_id     BIGINT PRIMARY KEY,
    source_key     VARCHAR(50) NOT NULL UNIQUE,
    product_name   VARCHAR(100) NOT NULL,
    category       VARCHAR(50) NOT NULL,
    price          DECIMAL(10,2) NOT NULL,
    stock_quantity INT DEFAULT 0
)`, `
CREATE TABLE IF NOT EXISTS orders (
    order_id     BIGINT PRIMARY KEY,
    source_key   VARCHAR(100) NOT NULL UNIQUE,
    customer_id  BIGINT NOT NULL,
    order_date   DATE NOT NULL,
    total_amount DECIMAL(10,2) NOT NULL,
    status       VARCHAR(20) DEFAULT 'Pending',
    FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
)`, `
CREATE TABLE IF NOT EXISTS order_items (
    order_item_id BIGINT PRIMARY KEY,
    source_key    VARCHAR(200) NOT NULL UNIQUE,
    order_id      BIGINT NOT NULL,
    product_id    BIGINT NOT NULL,
    quantity      INT NOT NULL,
    unit_price    DECIMAL(10,2) NOT NULL,
    subtotal      DECIMAL(10,2) NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(order_id),
    FOREIGN KEY (product_id) REFERENCES products(product_id)
)`, `
CREATE TABLE IF NOT EXISTS etl_runs (
    run_id      VARCHAR(36) PRIMARY KEY,
    version     VARCHAR(32) NOT NULL,
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    loaded      BIGINT NOT NULL,
    dropped     BIGINT NOT NULL,
    changes     BIGINT NOT NULL
)`}

// CreateStatements returns the DDL that creates every table.
func CreateStatements() []string {
	return createTableSQL
}

// DropStatements returns the DDL that drops every table, children first.
func DropStatements() []string {
	out := []string{"DROP TABLE IF EXISTS etl_runs"}
	for i := len(model.LoadOrder) - 1; i >= 0; i-- {
		out = append(out, "DROP TABLE IF EXISTS "+Table(model.LoadOrder[i]))
	}
	return out
}

// Table returns the destination table of a kind.
func Table(kind model.Kind) string {
	return string(kind)
}

// InsertSQL builds a positional insert for kind using the given
// placeholder style ("?" or "$").
func InsertSQL(kind model.Kind, placeholder string) string {
	cols := model.Columns(kind)
	marks := make([]string, len(cols))
	for i := range cols {
		if placeholder == "$" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table(kind), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// LookupSQL builds the natural key lookup of kind with a "?" placeholder.
func LookupSQL(kind model.Kind) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		model.Columns(kind)[0], Table(kind), model.LookupColumn(kind))
}

// RecordRunSQL inserts one row into the run history table.
const RecordRunSQL = `INSERT INTO etl_runs (run_id, version, started_at, finished_at, loaded, dropped, changes) VALUES (?, ?, ?, ?, ?, ?, ?)`
