// Package queue defines the domain events published to the message broker
// and the publisher that delivers them. Downstream consumers (notification
// delivery, analytics) subscribe to these instead of polling the database.
package queue

import "time"

// Routing keys for published events
const (
	RouteOrderPaid       = "order.paid"
	RouteOrderCancelled  = "order.cancelled"
	RouteTicketCheckedIn = "ticket.checked_in"
)

// OrderPaidEvent is published when payment is confirmed for an order
type OrderPaidEvent struct {
	OrderID     int       `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	EventID     int       `json:"event_id"`
	BuyerEmail  string    `json:"buyer_email"`
	TotalCents  int       `json:"total_cents"`
	PaidAt      time.Time `json:"paid_at"`
}

// OrderCancelledEvent is published when an order is cancelled, whether by an
// operator or by the reservation expiry sweep
type OrderCancelledEvent struct {
	OrderID       int       `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	EventID       int       `json:"event_id"`
	ReleasedUnits int       `json:"released_units"`
	Expired       bool      `json:"expired"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

// TicketCheckedInEvent is published for every accepted gate scan
type TicketCheckedInEvent struct {
	TicketID    int       `json:"ticket_id"`
	OrderID     int       `json:"order_id"`
	Scanner     string    `json:"scanner"`
	CheckedInAt time.Time `json:"checked_in_at"`
}
