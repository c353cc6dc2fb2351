package services

import (
	"context"
	"time"

	"eventgate/internal/models"
)

// ScheduleOutcome is the result of a session validation or save. When OK is
// false, ConflictWith names the session already holding the room.
type ScheduleOutcome struct {
	OK           bool            `json:"ok"`
	ConflictWith int             `json:"conflict_with,omitempty"`
	Session      *models.Session `json:"session,omitempty"`
}

// ScheduleService checks room bookings for time overlap before they are
// persisted. All intervals are half-open: a session ending at 10:00 does not
// conflict with one starting at 10:00.
type ScheduleService struct {
	sessions SessionRepository
}

func NewScheduleService(sessions SessionRepository) *ScheduleService {
	return &ScheduleService{sessions: sessions}
}

// Validate reports whether the proposed slot is free, without writing
// anything. sessionID may be 0 for a new session; an existing session never
// conflicts with itself. The answer is advisory: only SaveSession decides
// under the room lock.
func (s *ScheduleService) Validate(ctx context.Context, sessionID int, roomID *int, startAt, endAt time.Time) (*ScheduleOutcome, error) {
	if err := validateSessionTimes(startAt, endAt); err != nil {
		return nil, err
	}
	if roomID == nil {
		return &ScheduleOutcome{OK: true}, nil
	}
	conflictID, err := s.sessions.FindConflict(ctx, sessionID, *roomID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	if conflictID != 0 {
		return &ScheduleOutcome{OK: false, ConflictWith: conflictID}, nil
	}
	return &ScheduleOutcome{OK: true}, nil
}

// SaveSession creates (id == 0) or reschedules a session. When a room is
// assigned, the conflict check and the write happen under a per-room lock so
// two overlapping saves cannot both land.
func (s *ScheduleService) SaveSession(ctx context.Context, id int, req *models.SessionSaveRequest) (*ScheduleOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, &models.InvalidArgumentError{Field: "session", Reason: err.Error()}
	}

	var (
		session    *models.Session
		conflictID int
	)
	err := withRetry(ctx, "save session", defaultRetryAttempts, defaultRetryBackoff, func() error {
		var err error
		session, conflictID, err = s.sessions.Save(ctx, id, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	if conflictID != 0 {
		return &ScheduleOutcome{OK: false, ConflictWith: conflictID}, nil
	}
	return &ScheduleOutcome{OK: true, Session: session}, nil
}

func (s *ScheduleService) GetSession(ctx context.Context, id int) (*models.Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *ScheduleService) ListSessions(ctx context.Context, eventID int) ([]*models.Session, error) {
	return s.sessions.ListByEvent(ctx, eventID)
}

func (s *ScheduleService) DeleteSession(ctx context.Context, id int) error {
	return s.sessions.Delete(ctx, id)
}

func validateSessionTimes(startAt, endAt time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return &models.InvalidArgumentError{Field: "start_at", Reason: "start and end times are required"}
	}
	if !startAt.Before(endAt) {
		return &models.InvalidArgumentError{Field: "end_at", Reason: "end time must be after start time"}
	}
	return nil
}
