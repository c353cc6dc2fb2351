package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eventgate/internal/models"
)

// TicketRepository handles ticket type and ticket data operations. The
// quantity_sold counter on ticket_types is only ever mutated through the
// guarded single-statement updates in this file, so a check-and-increment can
// never interleave with a concurrent one.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// CreateTicketType creates a new ticket type with a zero sold counter
func (r *TicketRepository) CreateTicketType(ctx context.Context, req *models.TicketTypeCreateRequest) (*models.TicketType, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO ticket_types (event_id, name, price_cents, quantity_total, quantity_sold, sales_start, sales_end, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
		RETURNING id, event_id, name, price_cents, quantity_total, quantity_sold, sales_start, sales_end, created_at`

	ticketType := &models.TicketType{}
	err := r.db.QueryRowContext(
		ctx,
		query,
		req.EventID,
		req.Name,
		req.PriceCents,
		req.QuantityTotal,
		req.SalesStart,
		req.SalesEnd,
		time.Now(),
	).Scan(
		&ticketType.ID,
		&ticketType.EventID,
		&ticketType.Name,
		&ticketType.PriceCents,
		&ticketType.QuantityTotal,
		&ticketType.QuantitySold,
		&ticketType.SalesStart,
		&ticketType.SalesEnd,
		&ticketType.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	return ticketType, nil
}

// GetTicketTypeByID retrieves a ticket type by ID
func (r *TicketRepository) GetTicketTypeByID(ctx context.Context, id int) (*models.TicketType, error) {
	query := `
		SELECT id, event_id, name, price_cents, quantity_total, quantity_sold, sales_start, sales_end, created_at
		FROM ticket_types
		WHERE id = $1`

	ticketType := &models.TicketType{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ticketType.ID,
		&ticketType.EventID,
		&ticketType.Name,
		&ticketType.PriceCents,
		&ticketType.QuantityTotal,
		&ticketType.QuantitySold,
		&ticketType.SalesStart,
		&ticketType.SalesEnd,
		&ticketType.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	return ticketType, nil
}

// GetTicketTypesByEvent retrieves all ticket types for an event
func (r *TicketRepository) GetTicketTypesByEvent(ctx context.Context, eventID int) ([]*models.TicketType, error) {
	query := `
		SELECT id, event_id, name, price_cents, quantity_total, quantity_sold, sales_start, sales_end, created_at
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY price_cents ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types by event: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*models.TicketType
	for rows.Next() {
		ticketType := &models.TicketType{}
		err := rows.Scan(
			&ticketType.ID,
			&ticketType.EventID,
			&ticketType.Name,
			&ticketType.PriceCents,
			&ticketType.QuantityTotal,
			&ticketType.QuantitySold,
			&ticketType.SalesStart,
			&ticketType.SalesEnd,
			&ticketType.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, ticketType)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket types: %w", err)
	}

	return ticketTypes, nil
}

// ReserveUnits attempts to claim n inventory units of a ticket type. The
// capacity check, the sales-window check and the increment are one conditional
// statement, so no two reservations can both observe room for the last unit.
// It returns false when the guard rejects the claim; the caller classifies
// that denial with a follow-up read.
func (r *TicketRepository) ReserveUnits(ctx context.Context, ticketTypeID, n int, at time.Time) (bool, error) {
	query := `
		UPDATE ticket_types
		SET quantity_sold = quantity_sold + $2
		WHERE id = $1
		  AND quantity_sold + $2 <= quantity_total
		  AND sales_start <= $3
		  AND $3 < sales_end`

	result, err := r.db.ExecContext(ctx, query, ticketTypeID, n, at)
	if err != nil {
		return false, fmt.Errorf("failed to reserve %d units of ticket type %d: %w", n, ticketTypeID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ReleaseUnits returns n inventory units of a ticket type, flooring the sold
// counter at zero. Used for saga compensation and order cancellation.
func (r *TicketRepository) ReleaseUnits(ctx context.Context, ticketTypeID, n int) error {
	return releaseUnits(ctx, r.db, ticketTypeID, n)
}

// execer lets release statements run against either the pool or an open transaction
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func releaseUnits(ctx context.Context, ex execer, ticketTypeID, n int) error {
	query := `
		UPDATE ticket_types
		SET quantity_sold = GREATEST(quantity_sold - $2, 0)
		WHERE id = $1`

	result, err := ex.ExecContext(ctx, query, ticketTypeID, n)
	if err != nil {
		return fmt.Errorf("failed to release %d units of ticket type %d: %w", n, ticketTypeID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrTicketTypeNotFound
	}

	return nil
}

// GetTicketByQRCode retrieves a ticket by its QR code
func (r *TicketRepository) GetTicketByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error) {
	query := `
		SELECT id, order_id, ticket_type_id, attendee_name, qr_code, status, checked_in_at, created_at
		FROM tickets
		WHERE qr_code = $1`

	ticket := &models.Ticket{}
	var checkedInAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, qrCode).Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.TicketTypeID,
		&ticket.AttendeeName,
		&ticket.QRCode,
		&ticket.Status,
		&checkedInAt,
		&ticket.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket by QR code: %w", err)
	}

	if checkedInAt.Valid {
		t := checkedInAt.Time
		ticket.CheckedInAt = &t
	}

	return ticket, nil
}

// GetTicketByID retrieves a ticket by ID
func (r *TicketRepository) GetTicketByID(ctx context.Context, id int) (*models.Ticket, error) {
	query := `
		SELECT id, order_id, ticket_type_id, attendee_name, qr_code, status, checked_in_at, created_at
		FROM tickets
		WHERE id = $1`

	ticket := &models.Ticket{}
	var checkedInAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.TicketTypeID,
		&ticket.AttendeeName,
		&ticket.QRCode,
		&ticket.Status,
		&checkedInAt,
		&ticket.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if checkedInAt.Valid {
		t := checkedInAt.Time
		ticket.CheckedInAt = &t
	}

	return ticket, nil
}

// GetTicketsByOrder retrieves all tickets for an order
func (r *TicketRepository) GetTicketsByOrder(ctx context.Context, orderID int) ([]*models.Ticket, error) {
	query := `
		SELECT id, order_id, ticket_type_id, attendee_name, qr_code, status, checked_in_at, created_at
		FROM tickets
		WHERE order_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets by order: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		var checkedInAt sql.NullTime
		err := rows.Scan(
			&ticket.ID,
			&ticket.OrderID,
			&ticket.TicketTypeID,
			&ticket.AttendeeName,
			&ticket.QRCode,
			&ticket.Status,
			&checkedInAt,
			&ticket.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		if checkedInAt.Valid {
			t := checkedInAt.Time
			ticket.CheckedInAt = &t
		}
		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// createTicketsTx bulk-inserts ticket rows within an open transaction
func createTicketsTx(ctx context.Context, tx *sql.Tx, orderID int, tickets []TicketInsert) error {
	if len(tickets) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO tickets (order_id, ticket_type_id, attendee_name, qr_code, status, created_at) VALUES `)

	args := make([]interface{}, 0, len(tickets)*6)
	now := time.Now()
	for i, t := range tickets {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 6
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, orderID, t.TicketTypeID, t.AttendeeName, t.QRCode, models.TicketValid, now)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return models.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to insert tickets: %w", err)
	}

	return nil
}

// TicketInsert describes one ticket row to issue for an order
type TicketInsert struct {
	TicketTypeID int
	AttendeeName string
	QRCode       string
}
