package services

import (
	"context"
	"errors"
	"log"
	"time"

	"eventgate/internal/models"
	"eventgate/internal/queue"
)

// CheckInOutcome reports the result of a gate scan. A rejection is a normal
// outcome and carries the reason; for an already-used ticket it also carries
// the time of the original acceptance so gate staff can see it.
type CheckInOutcome struct {
	Accepted    bool                 `json:"accepted"`
	Result      models.CheckInResult `json:"result"`
	Ticket      *models.Ticket       `json:"ticket,omitempty"`
	CheckedInAt *time.Time           `json:"checked_in_at,omitempty"`
}

// CheckInService validates scanned QR codes at the gate. The VALID -> USED
// transition is a single guarded update, so at most one of any number of
// concurrent scans for the same ticket is accepted.
type CheckInService struct {
	tickets   TicketRepository
	checkins  CheckInRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewCheckInService(tickets TicketRepository, checkins CheckInRepository, publisher EventPublisher) *CheckInService {
	return &CheckInService{tickets: tickets, checkins: checkins, publisher: publisher, now: time.Now}
}

// CheckIn processes one scan of qrCode by scanner.
func (s *CheckInService) CheckIn(ctx context.Context, qrCode, scanner string) (*CheckInOutcome, error) {
	if err := models.ValidateQRCodeFormat(qrCode); err != nil {
		return nil, &models.InvalidArgumentError{Field: "qr_code", Reason: err.Error()}
	}
	if err := models.ValidateScanner(scanner); err != nil {
		return nil, &models.InvalidArgumentError{Field: "scanner", Reason: err.Error()}
	}
	at := s.now().UTC()

	ticket, err := s.tickets.GetTicketByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, models.ErrTicketNotFound) {
			// Nothing to log against; unknown codes have no ticket row
			return &CheckInOutcome{Result: models.ScanRejectedUnknown}, nil
		}
		return nil, err
	}

	switch ticket.Status {
	case models.TicketCancelled:
		s.recordRejection(ctx, ticket.ID, scanner, models.ScanRejectedVoid, at)
		return &CheckInOutcome{Result: models.ScanRejectedVoid, Ticket: ticket}, nil
	case models.TicketUsed:
		s.recordRejection(ctx, ticket.ID, scanner, models.ScanRejectedUsed, at)
		return &CheckInOutcome{Result: models.ScanRejectedUsed, Ticket: ticket, CheckedInAt: ticket.CheckedInAt}, nil
	}

	var won bool
	err = withRetry(ctx, "consume ticket", defaultRetryAttempts, defaultRetryBackoff, func() error {
		var err error
		won, err = s.checkins.ConsumeTicket(ctx, ticket.ID, scanner, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// A concurrent scan or cancel got there first; re-read to report
		// the final state truthfully.
		return s.afterLostRace(ctx, ticket.ID, scanner, at)
	}

	ticket.Status = models.TicketUsed
	ticket.CheckedInAt = &at

	if perr := s.publish(ctx, queue.RouteTicketCheckedIn, queue.TicketCheckedInEvent{
		TicketID:    ticket.ID,
		OrderID:     ticket.OrderID,
		Scanner:     scanner,
		CheckedInAt: at,
	}); perr != nil {
		queue.LogPublishError(queue.RouteTicketCheckedIn, perr)
	}
	return &CheckInOutcome{Accepted: true, Result: models.ScanAccepted, Ticket: ticket, CheckedInAt: &at}, nil
}

// afterLostRace classifies a scan that found the ticket VALID but lost the
// guarded update to a concurrent writer.
func (s *CheckInService) afterLostRace(ctx context.Context, ticketID int, scanner string, at time.Time) (*CheckInOutcome, error) {
	ticket, err := s.tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch ticket.Status {
	case models.TicketCancelled:
		s.recordRejection(ctx, ticket.ID, scanner, models.ScanRejectedVoid, at)
		return &CheckInOutcome{Result: models.ScanRejectedVoid, Ticket: ticket}, nil
	default:
		s.recordRejection(ctx, ticket.ID, scanner, models.ScanRejectedUsed, at)
		return &CheckInOutcome{Result: models.ScanRejectedUsed, Ticket: ticket, CheckedInAt: ticket.CheckedInAt}, nil
	}
}

// recordRejection writes the audit row for a rejected scan. Best-effort: a
// failed audit write never turns a decided rejection into an error.
func (s *CheckInService) recordRejection(ctx context.Context, ticketID int, scanner string, result models.CheckInResult, at time.Time) {
	if err := s.checkins.RecordRejection(ctx, ticketID, scanner, result, at); err != nil {
		log.Printf("ERROR failed to record rejected scan for ticket %d: %v", ticketID, err)
	}
}

// ScanHistory returns the audit log for a ticket, newest first.
func (s *CheckInService) ScanHistory(ctx context.Context, ticketID int) ([]*models.CheckInLog, error) {
	if _, err := s.tickets.GetTicketByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.checkins.GetLogsByTicket(ctx, ticketID)
}

func (s *CheckInService) publish(ctx context.Context, routingKey string, event interface{}) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, routingKey, event)
}
