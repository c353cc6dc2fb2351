package handlers

import (
	"net/http"
	"strconv"

	"eventgate/internal/services"

	"github.com/go-chi/chi/v5"
)

// CheckInHandler handles gate scan requests
type CheckInHandler struct {
	checkins *services.CheckInService
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(checkins *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkins: checkins}
}

// scanRequest is the JSON body for a gate scan
type scanRequest struct {
	QRCode  string `json:"qr_code"`
	Scanner string `json:"scanner"`
}

// Scan processes one QR scan. Accepted scans are 200; rejections are 409
// with the reason, since the scan itself was well-formed but the ticket
// cannot be admitted.
func (h *CheckInHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.checkins.CheckIn(r.Context(), req.QRCode, req.Scanner)
	if err != nil {
		writeError(w, err)
		return
	}
	if !outcome.Accepted {
		writeJSON(w, http.StatusConflict, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// History returns the scan audit log for a ticket
func (h *CheckInHandler) History(w http.ResponseWriter, r *http.Request) {
	ticketID, err := strconv.Atoi(chi.URLParam(r, "ticketId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid ticket ID"})
		return
	}

	logs, err := h.checkins.ScanHistory(r.Context(), ticketID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
