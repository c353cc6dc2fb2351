package services

import (
	"context"
	"sync"
	"time"

	"eventgate/internal/models"
	"eventgate/internal/repositories"
)

// MockTicketRepository is an in-memory ticket store whose ReserveUnits honors
// the same check-and-act guard as the SQL statement, under a mutex so
// concurrent tests exercise real contention.
type MockTicketRepository struct {
	mu          sync.Mutex
	types       map[int]*models.TicketType
	tickets     map[int]*models.Ticket
	byQR        map[string]int
	nextTypeID  int
	nextTicket  int
	reserveErrs []error // consumed before each ReserveUnits call
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{
		types:      make(map[int]*models.TicketType),
		tickets:    make(map[int]*models.Ticket),
		byQR:       make(map[string]int),
		nextTypeID: 1,
		nextTicket: 1,
	}
}

func (m *MockTicketRepository) SetTicketType(tt *models.TicketType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[tt.ID] = tt
	if tt.ID >= m.nextTypeID {
		m.nextTypeID = tt.ID + 1
	}
}

func (m *MockTicketRepository) SetTicket(t *models.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = t
	m.byQR[t.QRCode] = t.ID
	if t.ID >= m.nextTicket {
		m.nextTicket = t.ID + 1
	}
}

// FailNextReserve queues errors returned by upcoming ReserveUnits calls
func (m *MockTicketRepository) FailNextReserve(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserveErrs = append(m.reserveErrs, errs...)
}

func (m *MockTicketRepository) CreateTicketType(ctx context.Context, req *models.TicketTypeCreateRequest) (*models.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt := &models.TicketType{
		ID:            m.nextTypeID,
		EventID:       req.EventID,
		Name:          req.Name,
		PriceCents:    req.PriceCents,
		QuantityTotal: req.QuantityTotal,
		SalesStart:    req.SalesStart,
		SalesEnd:      req.SalesEnd,
		CreatedAt:     time.Now(),
	}
	m.nextTypeID++
	m.types[tt.ID] = tt
	return tt, nil
}

func (m *MockTicketRepository) GetTicketTypeByID(ctx context.Context, id int) (*models.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.types[id]
	if !ok {
		return nil, models.ErrTicketTypeNotFound
	}
	cp := *tt
	return &cp, nil
}

func (m *MockTicketRepository) GetTicketTypesByEvent(ctx context.Context, eventID int) ([]*models.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TicketType
	for _, tt := range m.types {
		if tt.EventID == eventID {
			cp := *tt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTicketRepository) ReserveUnits(ctx context.Context, ticketTypeID, n int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reserveErrs) > 0 {
		err := m.reserveErrs[0]
		m.reserveErrs = m.reserveErrs[1:]
		if err != nil {
			return false, err
		}
	}
	tt, ok := m.types[ticketTypeID]
	if !ok {
		return false, nil
	}
	if !tt.IsOnSale(at) {
		return false, nil
	}
	if tt.QuantitySold+n > tt.QuantityTotal {
		return false, nil
	}
	tt.QuantitySold += n
	return true, nil
}

func (m *MockTicketRepository) ReleaseUnits(ctx context.Context, ticketTypeID, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.types[ticketTypeID]
	if !ok {
		return models.ErrTicketTypeNotFound
	}
	tt.QuantitySold -= n
	if tt.QuantitySold < 0 {
		tt.QuantitySold = 0
	}
	return nil
}

func (m *MockTicketRepository) GetTicketByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byQR[qrCode]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	cp := *m.tickets[id]
	return &cp, nil
}

func (m *MockTicketRepository) GetTicketByID(ctx context.Context, id int) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTicketRepository) GetTicketsByOrder(ctx context.Context, orderID int) ([]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Ticket
	for _, t := range m.tickets {
		if t.OrderID == orderID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// addTicketsLocked issues tickets for an order; callers hold the mutex
func (m *MockTicketRepository) addTicketsLocked(orderID int, inserts []repositories.TicketInsert) {
	for _, ins := range inserts {
		t := &models.Ticket{
			ID:           m.nextTicket,
			OrderID:      orderID,
			TicketTypeID: ins.TicketTypeID,
			AttendeeName: ins.AttendeeName,
			QRCode:       ins.QRCode,
			Status:       models.TicketValid,
			CreatedAt:    time.Now(),
		}
		m.nextTicket++
		m.tickets[t.ID] = t
		m.byQR[t.QRCode] = t.ID
	}
}

// MockOrderRepository is an in-memory order store with guarded transitions
type MockOrderRepository struct {
	mu         sync.Mutex
	orders     map[int]*models.Order
	tickets    *MockTicketRepository
	nextID     int
	createErr  error
	confirmErr error
}

func NewMockOrderRepository(tickets *MockTicketRepository) *MockOrderRepository {
	return &MockOrderRepository{
		orders:  make(map[int]*models.Order),
		tickets: tickets,
		nextID:  1,
	}
}

func (m *MockOrderRepository) SetOrder(o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	if o.ID >= m.nextID {
		m.nextID = o.ID + 1
	}
}

func (m *MockOrderRepository) FailCreateWith(err error) { m.createErr = err }

func (m *MockOrderRepository) CreateWithTickets(ctx context.Context, ins *repositories.OrderInsert) (*models.Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	order := &models.Order{
		ID:          m.nextID,
		EventID:     ins.EventID,
		OrderNumber: models.GenerateOrderNumber(),
		BuyerName:   ins.Buyer.Name,
		BuyerEmail:  ins.Buyer.Email,
		TotalCents:  ins.TotalCents,
		Status:      models.OrderPending,
		ExpiresAt:   ins.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.nextID++
	m.orders[order.ID] = order

	m.tickets.mu.Lock()
	m.tickets.addTicketsLocked(order.ID, ins.Tickets)
	m.tickets.mu.Unlock()

	cp := *order
	return &cp, nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (m *MockOrderRepository) ListByEvent(ctx context.Context, eventID int, status models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for _, o := range m.orders {
		if o.EventID != eventID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockOrderRepository) ConfirmPayment(ctx context.Context, id int) (*models.Order, error) {
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	if o.Status != models.OrderPending {
		return nil, &models.InvalidStateError{Entity: "order", ID: id, Status: string(o.Status), Op: "confirm payment"}
	}
	o.Status = models.OrderPaid
	o.UpdatedAt = time.Now()
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) Cancel(ctx context.Context, id int) (*repositories.CancelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	if !o.CanBeCancelled() {
		return nil, &models.InvalidStateError{Entity: "order", ID: id, Status: string(o.Status), Op: "cancel"}
	}
	o.Status = models.OrderCancelled
	o.UpdatedAt = time.Now()

	released := make(map[int]int)
	m.tickets.mu.Lock()
	for _, t := range m.tickets.tickets {
		if t.OrderID == id && t.Status == models.TicketValid {
			t.Status = models.TicketCancelled
			released[t.TicketTypeID]++
		}
	}
	for typeID, n := range released {
		if tt, ok := m.tickets.types[typeID]; ok {
			tt.QuantitySold -= n
			if tt.QuantitySold < 0 {
				tt.QuantitySold = 0
			}
		}
	}
	m.tickets.mu.Unlock()

	cp := *o
	return &repositories.CancelResult{Order: &cp, Released: released}, nil
}

func (m *MockOrderRepository) FindExpiredPending(ctx context.Context, at time.Time, limit int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for _, o := range m.orders {
		if o.IsExpired(at) {
			ids = append(ids, o.ID)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

// MockCheckInRepository honors the VALID -> USED guard under the ticket mutex
type MockCheckInRepository struct {
	mu      sync.Mutex
	tickets *MockTicketRepository
	logs    []*models.CheckInLog
	nextID  int
	failErr error
}

func NewMockCheckInRepository(tickets *MockTicketRepository) *MockCheckInRepository {
	return &MockCheckInRepository{tickets: tickets, nextID: 1}
}

func (m *MockCheckInRepository) FailConsumeWith(err error) { m.failErr = err }

func (m *MockCheckInRepository) ConsumeTicket(ctx context.Context, ticketID int, scanner string, at time.Time) (bool, error) {
	if m.failErr != nil {
		return false, m.failErr
	}
	m.tickets.mu.Lock()
	t, ok := m.tickets.tickets[ticketID]
	if !ok || t.Status != models.TicketValid {
		m.tickets.mu.Unlock()
		return false, nil
	}
	t.Status = models.TicketUsed
	t.CheckedInAt = &at
	m.tickets.mu.Unlock()

	m.mu.Lock()
	m.logs = append(m.logs, &models.CheckInLog{
		ID:        m.nextID,
		TicketID:  ticketID,
		Scanner:   scanner,
		Result:    models.ScanAccepted,
		ScannedAt: at,
	})
	m.nextID++
	m.mu.Unlock()
	return true, nil
}

func (m *MockCheckInRepository) RecordRejection(ctx context.Context, ticketID int, scanner string, result models.CheckInResult, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, &models.CheckInLog{
		ID:        m.nextID,
		TicketID:  ticketID,
		Scanner:   scanner,
		Result:    result,
		ScannedAt: at,
	})
	m.nextID++
	return nil
}

func (m *MockCheckInRepository) GetLogsByTicket(ctx context.Context, ticketID int) ([]*models.CheckInLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CheckInLog
	for _, l := range m.logs {
		if l.TicketID == ticketID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// AcceptedCount returns how many accepted rows exist for a ticket
func (m *MockCheckInRepository) AcceptedCount(ticketID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.logs {
		if l.TicketID == ticketID && l.Result == models.ScanAccepted {
			n++
		}
	}
	return n
}

// MockSessionRepository is an in-memory schedule with atomic conflict checks
type MockSessionRepository struct {
	mu       sync.Mutex
	sessions map[int]*models.Session
	nextID   int
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{sessions: make(map[int]*models.Session), nextID: 1}
}

func (m *MockSessionRepository) SetSession(s *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id int) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Session
	for _, s := range m.sessions {
		if s.EventID == eventID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSessionRepository) FindConflict(ctx context.Context, excludeID int, roomID int, startAt, endAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findConflictLocked(excludeID, roomID, startAt, endAt), nil
}

func (m *MockSessionRepository) findConflictLocked(excludeID, roomID int, startAt, endAt time.Time) int {
	for _, s := range m.sessions {
		if s.ID == excludeID || s.RoomID == nil || *s.RoomID != roomID {
			continue
		}
		if models.Overlaps(startAt, endAt, s.StartAt, s.EndAt) {
			return s.ID
		}
	}
	return 0
}

func (m *MockSessionRepository) Save(ctx context.Context, id int, req *models.SessionSaveRequest) (*models.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.RoomID != nil {
		if conflictID := m.findConflictLocked(id, *req.RoomID, req.StartAt, req.EndAt); conflictID != 0 {
			return nil, conflictID, nil
		}
	}
	now := time.Now()
	if id == 0 {
		s := &models.Session{
			ID:        m.nextID,
			EventID:   req.EventID,
			Title:     req.Title,
			RoomID:    req.RoomID,
			StartAt:   req.StartAt,
			EndAt:     req.EndAt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.nextID++
		m.sessions[s.ID] = s
		cp := *s
		return &cp, 0, nil
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, 0, models.ErrSessionNotFound
	}
	s.Title = req.Title
	s.RoomID = req.RoomID
	s.StartAt = req.StartAt
	s.EndAt = req.EndAt
	s.UpdatedAt = now
	cp := *s
	return &cp, 0, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return models.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// MockPublisher captures published events
type MockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	RoutingKey string
	Event      interface{}
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{RoutingKey: routingKey, Event: event})
	return nil
}

func (m *MockPublisher) EventsFor(routingKey string) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []interface{}
	for _, e := range m.events {
		if e.RoutingKey == routingKey {
			out = append(out, e.Event)
		}
	}
	return out
}
