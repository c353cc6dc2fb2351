package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"eventgate/internal/models"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid argument",
			err:        &models.InvalidArgumentError{Field: "quantity", Reason: "must be at least 1"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid state",
			err:        &models.InvalidStateError{Entity: "order", ID: 1, Status: "CANCELLED", Op: "confirm payment"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "ticket type not found",
			err:        models.ErrTicketTypeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "order not found wrapped",
			err:        errors.Join(errors.New("lookup"), models.ErrOrderNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "transient exhausted",
			err:        &models.TransientError{Op: "reserve units", Err: errors.New("deadlock")},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tc.wantStatus == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}
