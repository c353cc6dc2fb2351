package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Order represents a purchase of one or more tickets for an event.
// A PENDING order holds reserved inventory until it is paid, cancelled,
// or expires past ExpiresAt.
type Order struct {
	ID          int         `json:"id" db:"id"`
	EventID     int         `json:"event_id" db:"event_id"`
	OrderNumber string      `json:"order_number" db:"order_number"`
	BuyerName   string      `json:"buyer_name" db:"buyer_name"`
	BuyerEmail  string      `json:"buyer_email" db:"buyer_email"`
	TotalCents  int         `json:"total_cents" db:"total_cents"`
	Status      OrderStatus `json:"status" db:"status"`
	ExpiresAt   time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Buyer identifies the purchaser on an order
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LineItem is one (ticket type, quantity) entry of a purchase request
type LineItem struct {
	TicketTypeID int    `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	AttendeeName string `json:"attendee_name"`
}

var (
	// Order number format: ORD-YYYYMMDD-XXXXXX (e.g., ORD-20240101-123456)
	orderNumberRegex = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)
	// Email validation regex for orders
	orderEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// GenerateOrderNumber generates a new order number of the form ORD-YYYYMMDD-XXXXXX
func GenerateOrderNumber() string {
	date := time.Now().Format("20060102")

	// Six random digits from crypto/rand
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// Fall back to a time-derived suffix; uniqueness is still enforced by the store
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}

	return fmt.Sprintf("ORD-%s-%06d", date, n.Int64())
}

// Validate validates the order data
func (o *Order) Validate() error {
	if !orderNumberRegex.MatchString(o.OrderNumber) {
		return errors.New("order number format is invalid")
	}

	if err := validateOrderTotal(o.TotalCents); err != nil {
		return err
	}

	if err := validateOrderStatus(o.Status); err != nil {
		return err
	}

	return nil
}

// Validate validates the buyer identity attached to a purchase request
func (b *Buyer) Validate() error {
	if b.Name == "" {
		return errors.New("buyer name is required")
	}

	if len(b.Name) > 100 {
		return errors.New("buyer name must be less than 100 characters")
	}

	if b.Email == "" {
		return errors.New("buyer email is required")
	}

	if !orderEmailRegex.MatchString(b.Email) {
		return errors.New("buyer email format is invalid")
	}

	return nil
}

// Validate validates a single line item of a purchase request
func (li *LineItem) Validate() error {
	if li.TicketTypeID <= 0 {
		return errors.New("ticket type id is required")
	}

	if li.Quantity < 1 {
		return errors.New("quantity must be at least 1")
	}

	if li.Quantity > 20 {
		return errors.New("quantity cannot exceed 20 per line item")
	}

	if len(li.AttendeeName) > 100 {
		return errors.New("attendee name must be less than 100 characters")
	}

	return nil
}

// ValidateOrderNumber checks the ORD-YYYYMMDD-XXXXXX format
func ValidateOrderNumber(orderNumber string) error {
	if !orderNumberRegex.MatchString(orderNumber) {
		return errors.New("order number format is invalid")
	}
	return nil
}

// validateOrderTotal validates an order total amount
func validateOrderTotal(totalCents int) error {
	if totalCents < 0 {
		return errors.New("total amount cannot be negative")
	}

	// Maximum order amount of $100,000 (10,000,000 cents)
	if totalCents > 10000000 {
		return errors.New("total amount cannot exceed $100,000")
	}

	return nil
}

// validateOrderStatus validates an order status
func validateOrderStatus(status OrderStatus) error {
	switch status {
	case OrderPending, OrderPaid, OrderCancelled:
		return nil
	default:
		return errors.New("invalid order status")
	}
}

// IsPending returns true if the order awaits payment confirmation
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// IsPaid returns true if payment has been confirmed for the order
func (o *Order) IsPaid() bool {
	return o.Status == OrderPaid
}

// IsCancelled returns true if the order has been cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderCancelled
}

// CanBeConfirmed returns true if the order can transition to PAID
func (o *Order) CanBeConfirmed() bool {
	return o.Status == OrderPending
}

// CanBeCancelled returns true if the order can transition to CANCELLED
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderPending || o.Status == OrderPaid
}

// IsExpired reports whether a PENDING order has outlived its reservation window at the given time
func (o *Order) IsExpired(at time.Time) bool {
	return o.Status == OrderPending && !o.ExpiresAt.IsZero() && at.After(o.ExpiresAt)
}
