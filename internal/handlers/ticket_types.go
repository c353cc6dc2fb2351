package handlers

import (
	"net/http"
	"strconv"

	"eventgate/internal/models"
	"eventgate/internal/services"

	"github.com/go-chi/chi/v5"
)

// TicketTypeHandler handles ticket type management for an event
type TicketTypeHandler struct {
	inventory *services.InventoryService
}

// NewTicketTypeHandler creates a new ticket type handler
func NewTicketTypeHandler(inventory *services.InventoryService) *TicketTypeHandler {
	return &TicketTypeHandler{inventory: inventory}
}

// Create registers a new ticket type under an event
func (h *TicketTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}

	var req models.TicketTypeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.EventID = eventID

	tt, err := h.inventory.CreateTicketType(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tt)
}

// Get returns one ticket type with its remaining capacity
func (h *TicketTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid ticket type ID"})
		return
	}

	tt, err := h.inventory.GetTicketType(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tt)
}

// ListByEvent returns all ticket types for an event
func (h *TicketTypeHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "eventId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}

	types, err := h.inventory.ListTicketTypes(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}
