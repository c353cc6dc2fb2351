package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"eventgate/internal/config"
	"eventgate/internal/database"
	"eventgate/internal/queue"
	"eventgate/internal/repositories"
	"eventgate/internal/services"
)

// One-shot sweep for deployments that prefer cron over the in-process ticker.
func main() {
	var (
		batchFlag   = flag.Int("batch", 100, "Maximum number of orders to expire")
		timeoutFlag = flag.Duration("timeout", 30*time.Second, "Overall run timeout")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	publisher := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
	defer publisher.Close()

	ticketRepo := repositories.NewTicketRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	inventoryService := services.NewInventoryService(ticketRepo)
	orderService := services.NewOrderService(orderRepo, ticketRepo, inventoryService, publisher, cfg.Reservation.TTL)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	n, err := orderService.ExpirePendingOrders(ctx, *batchFlag)
	if err != nil {
		log.Fatalf("Sweep failed after expiring %d orders: %v", n, err)
	}
	fmt.Printf("Expired %d pending orders\n", n)
}
