package handlers

import (
	"net/http"

	"eventgate/internal/config"
	"eventgate/internal/database"
	"eventgate/internal/middleware"
	"eventgate/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// RouterDeps holds everything the HTTP surface needs
type RouterDeps struct {
	Config    *config.Config
	DB        *database.DB
	Redis     *redis.Client
	Inventory *services.InventoryService
	Orders    *services.OrderService
	CheckIns  *services.CheckInService
	Schedule  *services.ScheduleService
}

// NewRouter assembles the API routes
func NewRouter(deps RouterDeps) http.Handler {
	ticketTypeHandler := NewTicketTypeHandler(deps.Inventory)
	orderHandler := NewOrderHandler(deps.Orders)
	checkInHandler := NewCheckInHandler(deps.CheckIns)
	sessionHandler := NewSessionHandler(deps.Schedule)
	healthHandler := NewHealthHandler(deps.DB)

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Config.RateLimit, deps.Redis))

		r.Route("/events/{eventId}", func(r chi.Router) {
			r.Get("/ticket-types", ticketTypeHandler.ListByEvent)
			r.Post("/ticket-types", ticketTypeHandler.Create)

			r.Get("/orders", orderHandler.ListByEvent)
			r.Post("/orders", orderHandler.Create)

			r.Get("/sessions", sessionHandler.ListByEvent)
			r.Post("/sessions", sessionHandler.Create)
		})

		r.Get("/ticket-types/{id}", ticketTypeHandler.Get)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", orderHandler.Get)
			r.Get("/{id}/tickets", orderHandler.Tickets)
			r.Post("/{id}/confirm-payment", orderHandler.ConfirmPayment)
			r.Post("/{id}/cancel", orderHandler.Cancel)
			r.Get("/by-number/{orderNumber}", orderHandler.GetByNumber)
		})

		r.Post("/check-in", checkInHandler.Scan)
		r.Get("/tickets/{ticketId}/scans", checkInHandler.History)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/validate", sessionHandler.Validate)
			r.Get("/{id}", sessionHandler.Get)
			r.Put("/{id}", sessionHandler.Update)
			r.Delete("/{id}", sessionHandler.Delete)
		})
	})

	return r
}
