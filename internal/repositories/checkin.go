package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eventgate/internal/models"
)

// CheckInRepository owns the guarded transition VALID -> USED and the
// append-only check_in_logs table.
type CheckInRepository struct {
	db *sql.DB
}

// NewCheckInRepository creates a new check-in repository
func NewCheckInRepository(db *sql.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// ConsumeTicket attempts to mark a ticket USED. The status guard makes the
// update a single atomic claim: of any number of concurrent scans of the same
// ticket exactly one affects a row. The winner's acceptance log entry is
// written in the same transaction, so a USED ticket always has exactly one
// accepted row.
func (r *CheckInRepository) ConsumeTicket(ctx context.Context, ticketID int, scanner string, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = $2, checked_in_at = $3 WHERE id = $1 AND status = $4`,
		ticketID, models.TicketUsed, at, models.TicketValid,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume ticket %d: %w", ticketID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// A concurrent scan won the race, or the ticket was never VALID
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO check_in_logs (ticket_id, scanner, result, scanned_at) VALUES ($1, $2, $3, $4)`,
		ticketID, scanner, models.ScanAccepted, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record acceptance for ticket %d: %w", ticketID, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit check-in for ticket %d: %w", ticketID, err)
	}

	return true, nil
}

// RecordRejection appends an audit row for a rejected scan. It runs outside
// any check-in transaction and failures are the caller's to ignore; the
// exactly-once acceptance invariant does not depend on it.
func (r *CheckInRepository) RecordRejection(ctx context.Context, ticketID int, scanner string, result models.CheckInResult, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO check_in_logs (ticket_id, scanner, result, scanned_at) VALUES ($1, $2, $3, $4)`,
		ticketID, scanner, result, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record rejected scan for ticket %d: %w", ticketID, err)
	}
	return nil
}

// GetLogsByTicket retrieves the scan history of a ticket, oldest first
func (r *CheckInRepository) GetLogsByTicket(ctx context.Context, ticketID int) ([]*models.CheckInLog, error) {
	query := `
		SELECT id, ticket_id, scanner, result, scanned_at
		FROM check_in_logs
		WHERE ticket_id = $1
		ORDER BY scanned_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.CheckInLog
	for rows.Next() {
		entry := &models.CheckInLog{}
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.Scanner, &entry.Result, &entry.ScannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check-in log: %w", err)
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// CountAcceptances returns the number of accepted scan rows for a ticket.
// Used by integrity checks; the value is 1 for every USED ticket.
func (r *CheckInRepository) CountAcceptances(ctx context.Context, ticketID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM check_in_logs WHERE ticket_id = $1 AND result = $2`,
		ticketID, models.ScanAccepted,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count acceptances: %w", err)
	}
	return count, nil
}
