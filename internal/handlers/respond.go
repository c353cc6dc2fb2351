package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"eventgate/internal/models"
)

// errorResponse is the JSON body for every error reply
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR failed to encode response: %v", err)
	}
}

// writeError maps a service error to its HTTP status. Malformed input is
// 422, impossible state transitions are 409, exhausted transient conditions
// are 503, everything unclassified is 500.
func writeError(w http.ResponseWriter, err error) {
	var argErr *models.InvalidArgumentError
	if errors.As(err, &argErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: argErr.Reason, Field: argErr.Field})
		return
	}

	var stateErr *models.InvalidStateError
	if errors.As(err, &stateErr) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: stateErr.Error()})
		return
	}

	switch {
	case errors.Is(err, models.ErrTicketTypeNotFound),
		errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrTicketNotFound),
		errors.Is(err, models.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case models.IsTransient(err):
		log.Printf("ERROR transient failure: %v", err)
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable, retry the request"})
	default:
		log.Printf("ERROR internal failure: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeJSON parses the request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &models.InvalidArgumentError{Field: "body", Reason: "invalid JSON request body"}
	}
	return nil
}
