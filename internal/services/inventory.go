package services

import (
	"context"
	"fmt"
	"time"

	"eventgate/internal/models"
)

// DenialReason explains why a reservation was not granted. Denials are
// ordinary outcomes, not errors.
type DenialReason string

const (
	DenySoldOut            DenialReason = "sold_out"
	DenyOutsideSalesWindow DenialReason = "outside_sales_window"
	DenyInsufficientStock  DenialReason = "insufficient_stock"
)

// ReserveOutcome is the result of a reservation attempt.
type ReserveOutcome struct {
	Granted bool         `json:"granted"`
	Reason  DenialReason `json:"reason,omitempty"`
}

// InventoryService owns the per-ticket-type sold counters. All mutations go
// through single guarded UPDATE statements so concurrent reservations can
// never oversell.
type InventoryService struct {
	tickets TicketRepository
	now     func() time.Time
}

func NewInventoryService(tickets TicketRepository) *InventoryService {
	return &InventoryService{tickets: tickets, now: time.Now}
}

// CreateTicketType registers a new ticket type after validating the request.
func (s *InventoryService) CreateTicketType(ctx context.Context, req *models.TicketTypeCreateRequest) (*models.TicketType, error) {
	if err := req.Validate(); err != nil {
		return nil, &models.InvalidArgumentError{Field: "ticket_type", Reason: err.Error()}
	}
	tt, err := s.tickets.CreateTicketType(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}
	return tt, nil
}

func (s *InventoryService) GetTicketType(ctx context.Context, id int) (*models.TicketType, error) {
	return s.tickets.GetTicketTypeByID(ctx, id)
}

func (s *InventoryService) ListTicketTypes(ctx context.Context, eventID int) ([]*models.TicketType, error) {
	return s.tickets.GetTicketTypesByEvent(ctx, eventID)
}

// Reserve attempts to take n units of the ticket type. The guard runs inside
// the database; a zero-row update means denial, and a follow-up read only
// classifies the reason for reporting.
func (s *InventoryService) Reserve(ctx context.Context, ticketTypeID, n int) (*ReserveOutcome, error) {
	if n < 1 {
		return nil, &models.InvalidArgumentError{Field: "quantity", Reason: "must be at least 1"}
	}
	at := s.now().UTC()

	var granted bool
	err := withRetry(ctx, "reserve units", defaultRetryAttempts, defaultRetryBackoff, func() error {
		var err error
		granted, err = s.tickets.ReserveUnits(ctx, ticketTypeID, n, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if granted {
		return &ReserveOutcome{Granted: true}, nil
	}
	return s.classifyDenial(ctx, ticketTypeID, n, at)
}

// classifyDenial reads current state to name the denial reason. The read is
// advisory; the authoritative decision already happened in the guarded update.
func (s *InventoryService) classifyDenial(ctx context.Context, ticketTypeID, n int, at time.Time) (*ReserveOutcome, error) {
	tt, err := s.tickets.GetTicketTypeByID(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if !tt.IsOnSale(at) {
		return &ReserveOutcome{Granted: false, Reason: DenyOutsideSalesWindow}, nil
	}
	if tt.IsSoldOut() {
		return &ReserveOutcome{Granted: false, Reason: DenySoldOut}, nil
	}
	return &ReserveOutcome{Granted: false, Reason: DenyInsufficientStock}, nil
}

// Release returns n units to the pool. Used by order cancellation and by
// compensation when a multi-line reservation fails partway.
func (s *InventoryService) Release(ctx context.Context, ticketTypeID, n int) error {
	if n < 1 {
		return &models.InvalidArgumentError{Field: "quantity", Reason: "must be at least 1"}
	}
	return withRetry(ctx, "release units", defaultRetryAttempts, defaultRetryBackoff, func() error {
		return s.tickets.ReleaseUnits(ctx, ticketTypeID, n)
	})
}
