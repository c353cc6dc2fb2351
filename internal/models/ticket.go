package models

import (
	"errors"
	"strings"
	"time"
)

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketValid     TicketStatus = "VALID"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// TicketType represents a finite, time-boxed inventory pool of tickets for an event.
// QuantityTotal is the immutable ceiling; QuantitySold is mutated only through the
// ledger's guarded statements and never exceeds QuantityTotal.
type TicketType struct {
	ID            int       `json:"id" db:"id"`
	EventID       int       `json:"event_id" db:"event_id"`
	Name          string    `json:"name" db:"name"`
	PriceCents    int       `json:"price_cents" db:"price_cents"` // Price in cents
	QuantityTotal int       `json:"quantity_total" db:"quantity_total"`
	QuantitySold  int       `json:"quantity_sold" db:"quantity_sold"`
	SalesStart    time.Time `json:"sales_start" db:"sales_start"`
	SalesEnd      time.Time `json:"sales_end" db:"sales_end"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Ticket represents an individual issued ticket. A ticket consumes exactly one
// inventory unit of its TicketType for as long as it is not CANCELLED.
type Ticket struct {
	ID           int          `json:"id" db:"id"`
	OrderID      int          `json:"order_id" db:"order_id"`
	TicketTypeID int          `json:"ticket_type_id" db:"ticket_type_id"`
	AttendeeName string       `json:"attendee_name" db:"attendee_name"`
	QRCode       string       `json:"qr_code" db:"qr_code"`
	Status       TicketStatus `json:"status" db:"status"`
	CheckedInAt  *time.Time   `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// TicketTypeCreateRequest represents the data needed to create a ticket type
type TicketTypeCreateRequest struct {
	EventID       int       `json:"event_id"`
	Name          string    `json:"name"`
	PriceCents    int       `json:"price_cents"`
	QuantityTotal int       `json:"quantity_total"`
	SalesStart    time.Time `json:"sales_start"`
	SalesEnd      time.Time `json:"sales_end"`
}

// Validate validates ticket type creation data
func (req *TicketTypeCreateRequest) Validate() error {
	if err := validateTicketTypeName(req.Name); err != nil {
		return err
	}

	if err := validateTicketTypePrice(req.PriceCents); err != nil {
		return err
	}

	if err := validateTicketTypeQuantity(req.QuantityTotal); err != nil {
		return err
	}

	if err := validateTicketTypeSalesWindow(req.SalesStart, req.SalesEnd); err != nil {
		return err
	}

	return nil
}

// validateTicketTypeName validates a ticket type name
func validateTicketTypeName(name string) error {
	if name == "" {
		return errors.New("ticket type name is required")
	}

	if len(name) > 100 {
		return errors.New("ticket type name must be less than 100 characters")
	}

	if strings.TrimSpace(name) == "" {
		return errors.New("ticket type name cannot be only whitespace")
	}

	return nil
}

// validateTicketTypePrice validates a ticket type price
func validateTicketTypePrice(priceCents int) error {
	if priceCents < 0 {
		return errors.New("ticket price cannot be negative")
	}

	// Maximum price of $10,000 (1,000,000 cents)
	if priceCents > 1000000 {
		return errors.New("ticket price cannot exceed $10,000")
	}

	return nil
}

// validateTicketTypeQuantity validates a ticket type quantity ceiling
func validateTicketTypeQuantity(quantity int) error {
	if quantity <= 0 {
		return errors.New("ticket quantity must be greater than 0")
	}

	// Maximum quantity of 100,000 tickets per type
	if quantity > 100000 {
		return errors.New("ticket quantity cannot exceed 100,000")
	}

	return nil
}

// validateTicketTypeSalesWindow validates a ticket type sales window
func validateTicketTypeSalesWindow(salesStart, salesEnd time.Time) error {
	if salesStart.IsZero() {
		return errors.New("sales start date is required")
	}

	if salesEnd.IsZero() {
		return errors.New("sales end date is required")
	}

	if !salesStart.Before(salesEnd) {
		return errors.New("sales start date must be before sales end date")
	}

	return nil
}

// Remaining returns the number of unsold inventory units
func (tt *TicketType) Remaining() int {
	remaining := tt.QuantityTotal - tt.QuantitySold
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsSoldOut returns true if all inventory units are sold
func (tt *TicketType) IsSoldOut() bool {
	return tt.QuantitySold >= tt.QuantityTotal
}

// IsOnSale reports whether at is within the half-open sales window [SalesStart, SalesEnd)
func (tt *TicketType) IsOnSale(at time.Time) bool {
	return !at.Before(tt.SalesStart) && at.Before(tt.SalesEnd)
}

// CanLowerQuantityTo returns true if the quantity ceiling can be lowered to newTotal
// without dropping below the units already sold
func (tt *TicketType) CanLowerQuantityTo(newTotal int) bool {
	return newTotal >= tt.QuantitySold
}

// IsValid returns true if the ticket has not been consumed or cancelled
func (t *Ticket) IsValid() bool {
	return t.Status == TicketValid
}

// IsUsed returns true if the ticket has been checked in
func (t *Ticket) IsUsed() bool {
	return t.Status == TicketUsed
}

// IsCancelled returns true if the ticket has been cancelled
func (t *Ticket) IsCancelled() bool {
	return t.Status == TicketCancelled
}

// CanTransitionTo reports whether the ticket status machine permits moving to next.
// Allowed: VALID→USED, VALID→CANCELLED, USED→CANCELLED. USED never returns to VALID
// and CANCELLED is terminal.
func (t *Ticket) CanTransitionTo(next TicketStatus) bool {
	switch t.Status {
	case TicketValid:
		return next == TicketUsed || next == TicketCancelled
	case TicketUsed:
		return next == TicketCancelled
	default:
		return false
	}
}
