package testutil

import (
	"github.com/fleximart/fleximart-etl/internal/extract"
	"github.com/fleximart/fleximart-etl/internal/model"
)

// RawCustomers are dirty customer rows in the shape of the FlexiMart
// sample export: one duplicate email, mixed phone and date formats and a
// row without an email.
func RawCustomers() []model.Row {
	return []model.Row{
		{"customer_id": "C001", "first_name": "Rahul", "last_name": "Sharma", "email": "rahul.sharma@gmail.com", "phone": "9876543210", "city": "Bangalore", "registration_date": "2023-01-15"},
		{"customer_id": "C002", "first_name": "Priya", "last_name": "Patel", "email": "priya.patel@yahoo.com", "phone": "+91-9988776655", "city": "Mumbai", "registration_date": "05/02/2023"},
		{"customer_id": "C003", "first_name": "Amit", "last_name": "Kumar", "email": "", "phone": "9765432109", "city": "Delhi", "registration_date": "2023-03-10"},
		{"customer_id": "C004", "first_name": "Sneha", "last_name": "Reddy", "email": "SNEHA.REDDY@gmail.com ", "phone": "09123456789", "city": "Hyderabad", "registration_date": "04-15-2023"},
		{"customer_id": "C001", "first_name": "Rahul", "last_name": "Sharma", "email": "rahul.sharma@gmail.com", "phone": "98765 43210", "city": "Bangalore", "registration_date": "2023-01-15"},
	}
}

// RawProducts are dirty product rows: inconsistent category casing, a
// missing stock value and a negative price.
func RawProducts() []model.Row {
	return []model.Row{
		{"product_id": "P001", "product_name": "Samsung Galaxy S21", "category": "electronics", "price": "45999.00", "stock_quantity": "150"},
		{"product_id": "P002", "product_name": "Nike Running Shoes", "category": "FASHION", "price": "3499.00", "stock_quantity": ""},
		{"product_id": "P003", "product_name": "Broken Item", "category": "Electronics", "price": "-10", "stock_quantity": "5"},
		{"product_id": "P004", "product_name": "Levi's Jeans", "category": " fashion ", "price": "2999", "stock_quantity": "120"},
	}
}

// RawSales are dirty sales rows: a duplicate transaction, a missing
// customer, an unparseable date and a sale of the dropped product.
func RawSales() []model.Row {
	return []model.Row{
		{"transaction_id": "T001", "customer_id": "C001", "product_id": "P001", "quantity": "1", "unit_price": "45999.00", "transaction_date": "2024-01-15", "status": "Completed"},
		{"transaction_id": "T002", "customer_id": "C001", "product_id": "P004", "quantity": "2", "unit_price": "2999.00", "transaction_date": "15/01/2024", "status": "completed"},
		{"transaction_id": "T003", "customer_id": "C002", "product_id": "P002", "quantity": "1", "unit_price": "3499.00", "transaction_date": "01-22-2024", "status": "Pending"},
		{"transaction_id": "T003", "customer_id": "C002", "product_id": "P002", "quantity": "1", "unit_price": "3499.00", "transaction_date": "01-22-2024", "status": "Pending"},
		{"transaction_id": "T004", "customer_id": "", "product_id": "P001", "quantity": "1", "unit_price": "45999.00", "transaction_date": "2024-02-01", "status": "Completed"},
		{"transaction_id": "T005", "customer_id": "C004", "product_id": "P001", "quantity": "1", "unit_price": "45999.00", "transaction_date": "2024-13-45", "status": "Completed"},
		{"transaction_id": "T006", "customer_id": "C004", "product_id": "P003", "quantity": "1", "unit_price": "10.00", "transaction_date": "2024-02-10", "status": "Cancelled"},
	}
}

// Sources returns in-memory sources for the sample rows.
func Sources() []extract.Source {
	return []extract.Source{
		extract.Static{K: model.KindCustomers, Rows: RawCustomers()},
		extract.Static{K: model.KindProducts, Rows: RawProducts()},
		extract.Static{K: model.KindSales, Rows: RawSales()},
	}
}
