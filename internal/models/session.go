package models

import (
	"errors"
	"strings"
	"time"
)

// Session represents a scheduled slot of an event's programme. RoomID is nil
// for unscheduled or virtual sessions; those never participate in conflict
// detection. The occupied interval is half-open: [StartAt, EndAt).
type Session struct {
	ID        int       `json:"id" db:"id"`
	EventID   int       `json:"event_id" db:"event_id"`
	Title     string    `json:"title" db:"title"`
	RoomID    *int      `json:"room_id,omitempty" db:"room_id"`
	StartAt   time.Time `json:"start_at" db:"start_at"`
	EndAt     time.Time `json:"end_at" db:"end_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SessionSaveRequest represents the data needed to create or update a session
type SessionSaveRequest struct {
	EventID int       `json:"event_id"`
	Title   string    `json:"title"`
	RoomID  *int      `json:"room_id,omitempty"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// Validate validates session save data
func (req *SessionSaveRequest) Validate() error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("session title is required")
	}

	if len(req.Title) > 200 {
		return errors.New("session title must be less than 200 characters")
	}

	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return errors.New("session start and end times are required")
	}

	if !req.StartAt.Before(req.EndAt) {
		return errors.New("session start time must be before end time")
	}

	if req.RoomID != nil && *req.RoomID <= 0 {
		return errors.New("room id must be positive")
	}

	return nil
}

// IsScheduled returns true if the session is assigned to a room
func (s *Session) IsScheduled() bool {
	return s.RoomID != nil
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictsWith reports whether the session occupies the same room as other
// during an overlapping time window. Sessions without a room never conflict,
// and a session never conflicts with itself.
func (s *Session) ConflictsWith(other *Session) bool {
	if s.RoomID == nil || other.RoomID == nil {
		return false
	}

	if s.ID != 0 && s.ID == other.ID {
		return false
	}

	if *s.RoomID != *other.RoomID {
		return false
	}

	return Overlaps(s.StartAt, s.EndAt, other.StartAt, other.EndAt)
}
