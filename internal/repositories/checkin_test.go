package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventgate/internal/models"
)

func createTestOrderWithTicket(t *testing.T, db *sql.DB) *models.Ticket {
	t.Helper()

	tt := createTestTicketType(t, db, 10)
	orders := NewOrderRepository(db)
	tickets := NewTicketRepository(db)
	ctx := context.Background()

	order, err := orders.CreateWithTickets(ctx, &OrderInsert{
		EventID:    1,
		Buyer:      models.Buyer{Name: "Ada Wanjiru", Email: "ada@example.com"},
		TotalCents: 5000,
		ExpiresAt:  time.Now().UTC().Add(15 * time.Minute),
		Tickets: []TicketInsert{
			{TicketTypeID: tt.ID, AttendeeName: "Ada Wanjiru", QRCode: fmt.Sprintf("TKT-test%d", time.Now().UnixNano())},
		},
	})
	if err != nil {
		t.Fatalf("CreateWithTickets failed: %v", err)
	}

	issued, err := tickets.GetTicketsByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetTicketsByOrder failed: %v", err)
	}
	if len(issued) != 1 {
		t.Fatalf("issued %d tickets, want 1", len(issued))
	}
	return issued[0]
}

func TestConsumeTicketExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckInRepository(db)
	ticket := createTestOrderWithTicket(t, db)
	ctx := context.Background()

	const scanners = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeTicket(ctx, ticket.ID, "gate-1", time.Now().UTC())
			if err != nil {
				t.Errorf("ConsumeTicket failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("won = %d, want exactly 1", won)
	}

	n, err := repo.CountAcceptances(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("CountAcceptances failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("accepted log rows = %d, want 1", n)
	}
}

func TestConsumeTicketOnUsedTicketLoses(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckInRepository(db)
	ticket := createTestOrderWithTicket(t, db)
	ctx := context.Background()

	ok, err := repo.ConsumeTicket(ctx, ticket.ID, "gate-1", time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("first scan: ok=%v err=%v, want win", ok, err)
	}

	ok, err = repo.ConsumeTicket(ctx, ticket.ID, "gate-2", time.Now().UTC())
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if ok {
		t.Fatal("second scan must lose the guard")
	}
}
