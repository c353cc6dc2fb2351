package services

import (
	"context"
	"time"

	"eventgate/internal/models"
	"eventgate/internal/repositories"
)

// TicketRepository is the storage contract for ticket types, tickets and the
// guarded inventory counter statements
type TicketRepository interface {
	CreateTicketType(ctx context.Context, req *models.TicketTypeCreateRequest) (*models.TicketType, error)
	GetTicketTypeByID(ctx context.Context, id int) (*models.TicketType, error)
	GetTicketTypesByEvent(ctx context.Context, eventID int) ([]*models.TicketType, error)
	ReserveUnits(ctx context.Context, ticketTypeID, n int, at time.Time) (bool, error)
	ReleaseUnits(ctx context.Context, ticketTypeID, n int) error
	GetTicketByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error)
	GetTicketByID(ctx context.Context, id int) (*models.Ticket, error)
	GetTicketsByOrder(ctx context.Context, orderID int) ([]*models.Ticket, error)
}

// OrderRepository is the storage contract for orders and their transactional
// status transitions
type OrderRepository interface {
	CreateWithTickets(ctx context.Context, ins *repositories.OrderInsert) (*models.Order, error)
	GetByID(ctx context.Context, id int) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByEvent(ctx context.Context, eventID int, status models.OrderStatus, limit, offset int) ([]*models.Order, error)
	ConfirmPayment(ctx context.Context, id int) (*models.Order, error)
	Cancel(ctx context.Context, id int) (*repositories.CancelResult, error)
	FindExpiredPending(ctx context.Context, at time.Time, limit int) ([]int, error)
}

// CheckInRepository is the storage contract for the guarded VALID -> USED
// transition and the scan audit log
type CheckInRepository interface {
	ConsumeTicket(ctx context.Context, ticketID int, scanner string, at time.Time) (bool, error)
	RecordRejection(ctx context.Context, ticketID int, scanner string, result models.CheckInResult, at time.Time) error
	GetLogsByTicket(ctx context.Context, ticketID int) ([]*models.CheckInLog, error)
}

// SessionRepository is the storage contract for sessions and room-conflict checks
type SessionRepository interface {
	GetByID(ctx context.Context, id int) (*models.Session, error)
	ListByEvent(ctx context.Context, eventID int) ([]*models.Session, error)
	FindConflict(ctx context.Context, excludeID int, roomID int, startAt, endAt time.Time) (int, error)
	Save(ctx context.Context, id int, req *models.SessionSaveRequest) (*models.Session, int, error)
	Delete(ctx context.Context, id int) error
}

// EventPublisher delivers domain events to downstream consumers. Publishing
// is best-effort; implementations must not be required for correctness.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}
