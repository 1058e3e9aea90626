package model

import "strings"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// Statuses lists every valid order status.
var Statuses = []Status{
	StatusPending, StatusProcessing, StatusShipped,
	StatusDelivered, StatusCompleted, StatusCancelled,
}

// ParseStatus matches s case-insensitively against the known statuses.
// "Canceled" is accepted as an alias of Cancelled.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "canceled") {
		return StatusCancelled, true
	}
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}
