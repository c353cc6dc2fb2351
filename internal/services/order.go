package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"eventgate/internal/models"
	"eventgate/internal/queue"
	"eventgate/internal/repositories"
)

// LineDenial reports which line item of an order request was denied and why.
type LineDenial struct {
	TicketTypeID int          `json:"ticket_type_id"`
	Reason       DenialReason `json:"reason"`
}

// CreateOrderResult carries either the created order with its tickets or the
// denial that stopped it. Exactly one of Order and Denied is set.
type CreateOrderResult struct {
	Order   *models.Order    `json:"order,omitempty"`
	Tickets []*models.Ticket `json:"tickets,omitempty"`
	Denied  *LineDenial      `json:"denied,omitempty"`
}

// OrderService coordinates multi-line reservations, order persistence and the
// pending-order expiry sweep.
type OrderService struct {
	orders         OrderRepository
	tickets        TicketRepository
	inventory      *InventoryService
	publisher      EventPublisher
	reservationTTL time.Duration
	now            func() time.Time
}

func NewOrderService(orders OrderRepository, tickets TicketRepository, inventory *InventoryService, publisher EventPublisher, reservationTTL time.Duration) *OrderService {
	return &OrderService{
		orders:         orders,
		tickets:        tickets,
		inventory:      inventory,
		publisher:      publisher,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

// CreateOrder reserves inventory for every line item, then persists the
// PENDING order and its tickets in one transaction. If any line is denied or
// any step fails, every reservation already taken is released before
// returning, so a denied order never holds stock.
func (s *OrderService) CreateOrder(ctx context.Context, eventID int, buyer models.Buyer, items []models.LineItem) (*CreateOrderResult, error) {
	if err := buyer.Validate(); err != nil {
		return nil, &models.InvalidArgumentError{Field: "buyer", Reason: err.Error()}
	}
	if len(items) == 0 {
		return nil, &models.InvalidArgumentError{Field: "items", Reason: "order must contain at least one line item"}
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, &models.InvalidArgumentError{Field: "items", Reason: err.Error()}
		}
	}

	// reserved tracks units taken so far, for compensation on failure
	reserved := make(map[int]int)
	release := func() {
		for typeID, n := range reserved {
			if err := s.inventory.Release(ctx, typeID, n); err != nil {
				log.Printf("ERROR failed to release %d units of ticket type %d: %v", n, typeID, err)
			}
		}
	}

	totalCents := 0
	inserts := make([]repositories.TicketInsert, 0, len(items))
	for _, item := range items {
		tt, err := s.tickets.GetTicketTypeByID(ctx, item.TicketTypeID)
		if err != nil {
			release()
			return nil, err
		}
		outcome, err := s.inventory.Reserve(ctx, item.TicketTypeID, item.Quantity)
		if err != nil {
			release()
			return nil, err
		}
		if !outcome.Granted {
			release()
			return &CreateOrderResult{Denied: &LineDenial{TicketTypeID: item.TicketTypeID, Reason: outcome.Reason}}, nil
		}
		reserved[item.TicketTypeID] += item.Quantity

		totalCents += tt.PriceCents * item.Quantity
		for i := 0; i < item.Quantity; i++ {
			qr, err := generateQRCode()
			if err != nil {
				release()
				return nil, err
			}
			inserts = append(inserts, repositories.TicketInsert{
				TicketTypeID: item.TicketTypeID,
				AttendeeName: item.AttendeeName,
				QRCode:       qr,
			})
		}
	}

	order, err := s.orders.CreateWithTickets(ctx, &repositories.OrderInsert{
		EventID:    eventID,
		Buyer:      buyer,
		TotalCents: totalCents,
		ExpiresAt:  s.now().UTC().Add(s.reservationTTL),
		Tickets:    inserts,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	tickets, err := s.tickets.GetTicketsByOrder(ctx, order.ID)
	if err != nil {
		// the order exists; ticket listing is recoverable by the caller
		log.Printf("ERROR failed to load tickets for order %d: %v", order.ID, err)
		tickets = nil
	}
	return &CreateOrderResult{Order: order, Tickets: tickets}, nil
}

// ConfirmPayment moves a PENDING order to PAID. The transition is guarded in
// the database so a concurrent cancel or a second confirm cannot race it.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID int) (*models.Order, error) {
	var order *models.Order
	err := withRetry(ctx, "confirm payment", defaultRetryAttempts, defaultRetryBackoff, func() error {
		var err error
		order, err = s.orders.ConfirmPayment(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if perr := s.publish(ctx, queue.RouteOrderPaid, queue.OrderPaidEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		EventID:     order.EventID,
		BuyerEmail:  order.BuyerEmail,
		TotalCents:  order.TotalCents,
		PaidAt:      s.now().UTC(),
	}); perr != nil {
		queue.LogPublishError(queue.RouteOrderPaid, perr)
	}
	return order, nil
}

// CancelOrder cancels a PENDING or PAID order, voids its remaining VALID
// tickets and returns their units to inventory.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int) (*models.Order, error) {
	return s.cancel(ctx, orderID, false)
}

func (s *OrderService) cancel(ctx context.Context, orderID int, expired bool) (*models.Order, error) {
	var res *repositories.CancelResult
	err := withRetry(ctx, "cancel order", defaultRetryAttempts, defaultRetryBackoff, func() error {
		var err error
		res, err = s.orders.Cancel(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	releasedUnits := 0
	for _, n := range res.Released {
		releasedUnits += n
	}
	if perr := s.publish(ctx, queue.RouteOrderCancelled, queue.OrderCancelledEvent{
		OrderID:       res.Order.ID,
		OrderNumber:   res.Order.OrderNumber,
		EventID:       res.Order.EventID,
		ReleasedUnits: releasedUnits,
		Expired:       expired,
		CancelledAt:   s.now().UTC(),
	}); perr != nil {
		queue.LogPublishError(queue.RouteOrderCancelled, perr)
	}
	return res.Order, nil
}

// ExpirePendingOrders cancels PENDING orders whose reservation window has
// elapsed. Each order goes through the normal cancel path so inventory release
// and ticket voiding stay in one transaction per order. Returns the number of
// orders expired.
func (s *OrderService) ExpirePendingOrders(ctx context.Context, limit int) (int, error) {
	ids, err := s.orders.FindExpiredPending(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if _, err := s.cancel(ctx, id, true); err != nil {
			var stateErr *models.InvalidStateError
			if errors.As(err, &stateErr) || errors.Is(err, models.ErrOrderNotFound) {
				// lost the race to a concurrent confirm or cancel
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if err := models.ValidateOrderNumber(orderNumber); err != nil {
		return nil, &models.InvalidArgumentError{Field: "order_number", Reason: err.Error()}
	}
	return s.orders.GetByOrderNumber(ctx, orderNumber)
}

func (s *OrderService) ListOrders(ctx context.Context, eventID int, status models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	return s.orders.ListByEvent(ctx, eventID, status, limit, offset)
}

func (s *OrderService) GetOrderTickets(ctx context.Context, orderID int) ([]*models.Ticket, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.tickets.GetTicketsByOrder(ctx, orderID)
}

func (s *OrderService) publish(ctx context.Context, routingKey string, event interface{}) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, routingKey, event)
}

// generateQRCode produces an opaque scan token: "TKT-" plus 32 hex characters.
func generateQRCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate qr code: %w", err)
	}
	return "TKT-" + hex.EncodeToString(buf), nil
}
