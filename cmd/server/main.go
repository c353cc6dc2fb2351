package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventgate/internal/config"
	"eventgate/internal/database"
	"eventgate/internal/handlers"
	"eventgate/internal/queue"
	"eventgate/internal/repositories"
	"eventgate/internal/services"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database connection
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
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("Database connection established successfully")

	// Run database migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Optional Redis client for rate limiting
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	// Optional AMQP publisher for domain events
	publisher := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
	defer publisher.Close()

	// Initialize repositories
	ticketRepo := repositories.NewTicketRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	checkInRepo := repositories.NewCheckInRepository(db.DB)
	sessionRepo := repositories.NewSessionRepository(db.DB)

	// Initialize services
	inventoryService := services.NewInventoryService(ticketRepo)
	orderService := services.NewOrderService(orderRepo, ticketRepo, inventoryService, publisher, cfg.Reservation.TTL)
	checkInService := services.NewCheckInService(ticketRepo, checkInRepo, publisher)
	scheduleService := services.NewScheduleService(sessionRepo)

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Inventory: inventoryService,
		Orders:    orderService,
		CheckIns:  checkInService,
		Schedule:  scheduleService,
	})

	// Background sweep for expired reservations
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := services.NewSweeper(orderService, cfg.Reservation.SweepInterval)
	go sweeper.Start(sweepCtx)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://%s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
