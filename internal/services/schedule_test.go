package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/models"
)

func intPtr(n int) *int { return &n }

func at(hour int) time.Time {
	return time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
}

func scheduledSession(id, roomID, startHour, endHour int) *models.Session {
	return &models.Session{
		ID:      id,
		EventID: 1,
		Title:   "Keynote",
		RoomID:  intPtr(roomID),
		StartAt: at(startHour),
		EndAt:   at(endHour),
	}
}

func TestValidateOverlapGrid(t *testing.T) {
	repo := NewMockSessionRepository()
	repo.SetSession(scheduledSession(1, 10, 10, 12)) // room 10, 10:00-12:00
	svc := NewScheduleService(repo)

	tests := []struct {
		name      string
		roomID    *int
		startHour int
		endHour   int
		wantOK    bool
	}{
		{"identical slot", intPtr(10), 10, 12, false},
		{"contained within", intPtr(10), 10, 11, false},
		{"contains existing", intPtr(10), 9, 13, false},
		{"overlaps start", intPtr(10), 9, 11, false},
		{"overlaps end", intPtr(10), 11, 13, false},
		{"ends when existing starts", intPtr(10), 8, 10, true},
		{"starts when existing ends", intPtr(10), 12, 14, true},
		{"entirely before", intPtr(10), 7, 9, true},
		{"entirely after", intPtr(10), 13, 15, true},
		{"other room same time", intPtr(11), 10, 12, true},
		{"no room", nil, 10, 12, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := svc.Validate(context.Background(), 0, tc.roomID, at(tc.startHour), at(tc.endHour))
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, outcome.OK)
			if !tc.wantOK {
				assert.Equal(t, 1, outcome.ConflictWith)
			}
		})
	}
}

func TestValidateIgnoresSelf(t *testing.T) {
	repo := NewMockSessionRepository()
	repo.SetSession(scheduledSession(1, 10, 10, 12))
	svc := NewScheduleService(repo)

	outcome, err := svc.Validate(context.Background(), 1, intPtr(10), at(10), at(12))
	require.NoError(t, err)
	assert.True(t, outcome.OK)
}

func TestValidateRejectsBadTimes(t *testing.T) {
	svc := NewScheduleService(NewMockSessionRepository())

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"zero times", time.Time{}, time.Time{}},
		{"end before start", at(12), at(10)},
		{"zero duration", at(10), at(10)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Validate(context.Background(), 0, intPtr(1), tc.start, tc.end)
			var argErr *models.InvalidArgumentError
			assert.ErrorAs(t, err, &argErr)
		})
	}
}

func TestSaveSessionCreates(t *testing.T) {
	repo := NewMockSessionRepository()
	svc := NewScheduleService(repo)

	outcome, err := svc.SaveSession(context.Background(), 0, &models.SessionSaveRequest{
		EventID: 1,
		Title:   "Opening Keynote",
		RoomID:  intPtr(10),
		StartAt: at(9),
		EndAt:   at(10),
	})
	require.NoError(t, err)
	assert.True(t, outcome.OK)
	require.NotNil(t, outcome.Session)
	assert.NotZero(t, outcome.Session.ID)
}

func TestSaveSessionConflictNamesWinner(t *testing.T) {
	repo := NewMockSessionRepository()
	repo.SetSession(scheduledSession(7, 10, 10, 12))
	svc := NewScheduleService(repo)

	outcome, err := svc.SaveSession(context.Background(), 0, &models.SessionSaveRequest{
		EventID: 1,
		Title:   "Workshop",
		RoomID:  intPtr(10),
		StartAt: at(11),
		EndAt:   at(13),
	})
	require.NoError(t, err)
	assert.False(t, outcome.OK)
	assert.Equal(t, 7, outcome.ConflictWith)
	assert.Nil(t, outcome.Session)
}

func TestSaveSessionRescheduleKeepsOwnSlot(t *testing.T) {
	repo := NewMockSessionRepository()
	repo.SetSession(scheduledSession(7, 10, 10, 12))
	svc := NewScheduleService(repo)

	// shrink the session inside its own slot
	outcome, err := svc.SaveSession(context.Background(), 7, &models.SessionSaveRequest{
		EventID: 1,
		Title:   "Keynote",
		RoomID:  intPtr(10),
		StartAt: at(10),
		EndAt:   at(11),
	})
	require.NoError(t, err)
	assert.True(t, outcome.OK)
	assert.Equal(t, at(11), outcome.Session.EndAt)
}

func TestSaveSessionWithoutRoomSkipsConflictCheck(t *testing.T) {
	repo := NewMockSessionRepository()
	repo.SetSession(scheduledSession(7, 10, 10, 12))
	svc := NewScheduleService(repo)

	outcome, err := svc.SaveSession(context.Background(), 0, &models.SessionSaveRequest{
		EventID: 1,
		Title:   "Virtual Panel",
		StartAt: at(10),
		EndAt:   at(12),
	})
	require.NoError(t, err)
	assert.True(t, outcome.OK)
}

func TestSaveSessionValidatesRequest(t *testing.T) {
	svc := NewScheduleService(NewMockSessionRepository())

	_, err := svc.SaveSession(context.Background(), 0, &models.SessionSaveRequest{
		EventID: 1,
		Title:   "",
		StartAt: at(9),
		EndAt:   at(10),
	})
	var argErr *models.InvalidArgumentError
	assert.ErrorAs(t, err, &argErr)
}
