package handlers

import (
	"net/http"
	"strconv"
	"time"

	"eventgate/internal/models"
	"eventgate/internal/services"

	"github.com/go-chi/chi/v5"
)

// SessionHandler handles session scheduling for an event's rooms
type SessionHandler struct {
	schedule *services.ScheduleService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(schedule *services.ScheduleService) *SessionHandler {
	return &SessionHandler{schedule: schedule}
}

// validateRequest is the JSON body for a dry-run slot check
type validateRequest struct {
	SessionID int       `json:"session_id"`
	RoomID    *int      `json:"room_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
}

// Validate checks a proposed slot without saving anything
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.schedule.Validate(r.Context(), req.SessionID, req.RoomID, req.StartAt, req.EndAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// Create schedules a new session. A room conflict is 409 naming the
// conflicting session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}

	var req models.SessionSaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.EventID = eventID

	outcome, err := h.schedule.SaveSession(r.Context(), 0, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	if !outcome.OK {
		writeJSON(w, http.StatusConflict, outcome)
		return
	}
	writeJSON(w, http.StatusCreated, outcome.Session)
}

// Update reschedules an existing session
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session ID"})
		return
	}

	existing, err := h.schedule.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.SessionSaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.EventID = existing.EventID

	outcome, err := h.schedule.SaveSession(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	if !outcome.OK {
		writeJSON(w, http.StatusConflict, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome.Session)
}

// Get returns one session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session ID"})
		return
	}

	session, err := h.schedule.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ListByEvent returns all sessions for an event
func (h *SessionHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}

	sessions, err := h.schedule.ListSessions(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Delete removes a session and frees its room slot
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session ID"})
		return
	}

	if err := h.schedule.DeleteSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
