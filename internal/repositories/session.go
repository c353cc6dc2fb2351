package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eventgate/internal/models"
)

// SessionRepository handles session data operations and room-conflict
// detection. Writes that assign a room are serialized per room with an
// advisory transaction lock so two concurrent claims of the same slot cannot
// both pass the overlap check under read-committed isolation.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// advisory lock namespace for room scheduling
const roomLockNamespace = 0x5e55

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id int) (*models.Session, error) {
	query := `
		SELECT id, event_id, title, room_id, start_at, end_at, created_at, updated_at
		FROM sessions
		WHERE id = $1`

	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

// ListByEvent retrieves all sessions for an event ordered by start time
func (r *SessionRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Session, error) {
	query := `
		SELECT id, event_id, title, room_id, start_at, end_at, created_at, updated_at
		FROM sessions
		WHERE event_id = $1
		ORDER BY start_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// FindConflict returns the ID of a session occupying the same room during an
// overlapping half-open window, excluding excludeID, or 0 when the slot is
// free. Used both for the advisory pre-check and for the in-transaction
// re-check on save.
func (r *SessionRepository) FindConflict(ctx context.Context, excludeID int, roomID int, startAt, endAt time.Time) (int, error) {
	return findConflict(ctx, r.db, excludeID, roomID, startAt, endAt)
}

// queryer lets the conflict check run against either the pool or an open transaction
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func findConflict(ctx context.Context, q queryer, excludeID int, roomID int, startAt, endAt time.Time) (int, error) {
	query := `
		SELECT id FROM sessions
		WHERE room_id = $1
		  AND id <> $2
		  AND start_at < $4
		  AND $3 < end_at
		ORDER BY start_at ASC
		LIMIT 1`

	var conflictID int
	err := q.QueryRowContext(ctx, query, roomID, excludeID, startAt, endAt).Scan(&conflictID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to check room conflict: %w", err)
	}

	return conflictID, nil
}

// Save creates (id == 0) or updates a session. When the session claims a
// room, the transaction takes a per-room advisory lock and re-runs the
// overlap check before persisting, so the admission decision and the write
// are indivisible. A detected conflict returns the blocking session ID and
// persists nothing.
func (r *SessionRepository) Save(ctx context.Context, id int, req *models.SessionSaveRequest) (*models.Session, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if req.RoomID != nil {
		// Serialize all schedule writes for this room. The lock is released
		// at commit/rollback.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, roomLockNamespace, *req.RoomID); err != nil {
			return nil, 0, fmt.Errorf("failed to lock room %d: %w", *req.RoomID, err)
		}

		conflictID, err := findConflict(ctx, tx, id, *req.RoomID, req.StartAt, req.EndAt)
		if err != nil {
			return nil, 0, err
		}
		if conflictID != 0 {
			return nil, conflictID, nil
		}
	}

	var session *models.Session
	now := time.Now()

	if id == 0 {
		query := `
			INSERT INTO sessions (event_id, title, room_id, start_at, end_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id, event_id, title, room_id, start_at, end_at, created_at, updated_at`
		session, err = scanSession(tx.QueryRowContext(ctx, query, req.EventID, req.Title, req.RoomID, req.StartAt, req.EndAt, now))
	} else {
		query := `
			UPDATE sessions
			SET title = $2, room_id = $3, start_at = $4, end_at = $5, updated_at = $6
			WHERE id = $1
			RETURNING id, event_id, title, room_id, start_at, end_at, created_at, updated_at`
		session, err = scanSession(tx.QueryRowContext(ctx, query, id, req.Title, req.RoomID, req.StartAt, req.EndAt, now))
	}
	if err != nil {
		return nil, 0, err
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit session save: %w", err)
	}

	return session, 0, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrSessionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	session := &models.Session{}
	var roomID sql.NullInt64

	err := row.Scan(
		&session.ID,
		&session.EventID,
		&session.Title,
		&roomID,
		&session.StartAt,
		&session.EndAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if roomID.Valid {
		rid := int(roomID.Int64)
		session.RoomID = &rid
	}

	return session, nil
}
