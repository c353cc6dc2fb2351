package services

import (
	"context"
	"log"
	"time"
)

const sweepBatchSize = 100

// Sweeper periodically expires PENDING orders whose reservation window has
// elapsed, returning their inventory to the pool.
type Sweeper struct {
	orders   *OrderService
	interval time.Duration
}

func NewSweeper(orders *OrderService, interval time.Duration) *Sweeper {
	return &Sweeper{orders: orders, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (sw *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	log.Printf("Reservation sweeper running every %s", sw.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Reservation sweeper stopped")
			return
		case <-ticker.C:
			sw.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass.
func (sw *Sweeper) RunOnce(ctx context.Context) {
	n, err := sw.orders.ExpirePendingOrders(ctx, sweepBatchSize)
	if err != nil {
		log.Printf("ERROR reservation sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Expired %d pending orders", n)
	}
}
