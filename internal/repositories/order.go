package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eventgate/internal/models"
)

// OrderRepository handles order data operations and the transactional status
// transitions that span orders, tickets and the inventory counters.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderInsert describes a new order row and the tickets issued with it
type OrderInsert struct {
	EventID    int
	Buyer      models.Buyer
	TotalCents int
	ExpiresAt  time.Time
	Tickets    []TicketInsert
}

// CreateWithTickets persists one PENDING order and its tickets in a single
// transaction. Inventory for the tickets must already be reserved; if this
// call fails the caller compensates with ReleaseUnits per ticket type.
func (r *OrderRepository) CreateWithTickets(ctx context.Context, ins *OrderInsert) (*models.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderNumber := models.GenerateOrderNumber()

	// Ensure order number is unique (retry if collision)
	for i := 0; i < 5; i++ {
		var exists bool
		err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)", orderNumber).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check order number uniqueness: %w", err)
		}
		if !exists {
			break
		}
		orderNumber = models.GenerateOrderNumber()
	}

	query := `
		INSERT INTO orders (event_id, order_number, buyer_name, buyer_email, total_cents, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, event_id, order_number, buyer_name, buyer_email, total_cents, status, expires_at, created_at, updated_at`

	now := time.Now()
	order := &models.Order{}

	err = tx.QueryRowContext(
		ctx,
		query,
		ins.EventID,
		orderNumber,
		ins.Buyer.Name,
		ins.Buyer.Email,
		ins.TotalCents,
		models.OrderPending,
		ins.ExpiresAt,
		now,
		now,
	).Scan(
		&order.ID,
		&order.EventID,
		&order.OrderNumber,
		&order.BuyerName,
		&order.BuyerEmail,
		&order.TotalCents,
		&order.Status,
		&order.ExpiresAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := createTicketsTx(ctx, tx, order.ID, ins.Tickets); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	return order, nil
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByOrderNumber retrieves an order by order number
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.getBy(ctx, "order_number = $1", orderNumber)
}

func (r *OrderRepository) getBy(ctx context.Context, where string, arg interface{}) (*models.Order, error) {
	query := `
		SELECT id, event_id, order_number, buyer_name, buyer_email, total_cents, status, expires_at, created_at, updated_at
		FROM orders
		WHERE ` + where

	order := &models.Order{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&order.ID,
		&order.EventID,
		&order.OrderNumber,
		&order.BuyerName,
		&order.BuyerEmail,
		&order.TotalCents,
		&order.Status,
		&order.ExpiresAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// ListByEvent retrieves orders for an event, optionally filtered by status,
// newest first
func (r *OrderRepository) ListByEvent(ctx context.Context, eventID int, status models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	conditions := []string{"event_id = $1"}
	args := []interface{}{eventID}

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT id, event_id, order_number, buyer_name, buyer_email, total_cents, status, expires_at, created_at, updated_at
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), len(args)+1, len(args)+2)

	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID,
			&order.EventID,
			&order.OrderNumber,
			&order.BuyerName,
			&order.BuyerEmail,
			&order.TotalCents,
			&order.Status,
			&order.ExpiresAt,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// ConfirmPayment transitions an order PENDING -> PAID through a guarded
// update. Zero affected rows means the order is not pending (or missing) and
// yields an InvalidStateError so the caller can distinguish the two.
func (r *OrderRepository) ConfirmPayment(ctx context.Context, id int) (*models.Order, error) {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, id, models.OrderPaid, time.Now(), models.OrderPending)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment for order %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		order, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &models.InvalidStateError{Entity: "order", ID: id, Status: string(order.Status), Op: "confirm payment"}
	}

	return r.GetByID(ctx, id)
}

// CancelResult reports what a cancellation changed: the cancelled order and
// the number of inventory units returned per ticket type. Tickets already
// USED stay USED and release nothing.
type CancelResult struct {
	Order    *models.Order
	Released map[int]int
}

// Cancel transitions an order to CANCELLED in one transaction: the order row
// is guarded on a cancellable status, every VALID ticket flips to CANCELLED,
// and the inventory those tickets held is released per ticket type.
func (r *OrderRepository) Cancel(ctx context.Context, id int) (*CancelResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 AND status IN ($4, $5)`,
		id, models.OrderCancelled, time.Now(), models.OrderPending, models.OrderPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		order, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &models.InvalidStateError{Entity: "order", ID: id, Status: string(order.Status), Op: "cancel"}
	}

	// Cancel remaining VALID tickets and collect how many units each ticket
	// type gets back. USED tickets are consumed history and stay untouched.
	rows, err := tx.QueryContext(ctx,
		`UPDATE tickets SET status = $2 WHERE order_id = $1 AND status = $3 RETURNING ticket_type_id`,
		id, models.TicketCancelled, models.TicketValid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel tickets for order %d: %w", id, err)
	}

	released := make(map[int]int)
	for rows.Next() {
		var ticketTypeID int
		if err := rows.Scan(&ticketTypeID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan cancelled ticket: %w", err)
		}
		released[ticketTypeID]++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating cancelled tickets: %w", err)
	}
	rows.Close()

	for ticketTypeID, n := range released {
		if err := releaseUnits(ctx, tx, ticketTypeID, n); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order cancellation: %w", err)
	}

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &CancelResult{Order: order, Released: released}, nil
}

// FindExpiredPending returns IDs of PENDING orders whose reservation window
// has elapsed at the given time, oldest first
func (r *OrderRepository) FindExpiredPending(ctx context.Context, at time.Time, limit int) ([]int, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id FROM orders
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, models.OrderPending, at, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired orders: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
