package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "citycar-backend/internal/api/http"
	"citycar-backend/internal/cache"
	"citycar-backend/internal/config"
	"citycar-backend/internal/logger"
	"citycar-backend/internal/payment"
	"citycar-backend/internal/queue"
	"citycar-backend/internal/repository/postgres"
	"citycar-backend/internal/security"
	"citycar-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CityCar Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Redis (cache + notification queue)
	redisClient, err := cache.Connect(context.Background(), cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Error("Failed to ping redis", "error", err)
		log.Fatalf("Failed to ping redis: %v", err)
	}
	logger.Info("Redis connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize Cache
	cacheStore := cache.NewStore(redisClient, time.Duration(cfg.Redis.CacheTTLHrs)*time.Hour)

	// Initialize Payment Gateway
	gateway := payment.NewStripeGateway(
		cfg.Stripe.SecretKey,
		cfg.Stripe.Currency,
		time.Duration(cfg.Stripe.TimeoutSeconds)*time.Second,
	)
	verifier := payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret)

	// Initialize Notification Queue and Email Workers
	emailQueue := queue.New(redisClient, queue.Options{
		Name:        cfg.Queue.Name,
		Workers:     cfg.Queue.Workers,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Backoff:     time.Duration(cfg.Queue.BackoffSeconds) * time.Second,
	})
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	service.RegisterEmailHandlers(emailQueue, emailSvc)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	emailQueue.Start(queueCtx)

	// Initialize Services
	leaseSvc := service.NewLeaseService(
		store.CarRepository,
		store.LeaseRepository,
		store.UserRepository,
		store.AuditRepository,
		gateway,
		cacheStore,
		emailQueue,
		time.Duration(cfg.Lease.HoldTimeoutMinutes)*time.Minute,
		time.Duration(cfg.Lease.ReminderThrottleHours)*time.Hour,
	)
	carSvc := service.NewCarService(store.CarRepository, store.AuditRepository, cacheStore)
	auditSvc := service.NewAuditService(store.AuditRepository)
	webhookSvc := service.NewWebhookService(
		store.LeaseRepository,
		store.CarRepository,
		store.WebhookEventRepository,
		store.AuditRepository,
		cacheStore,
		emailQueue,
	)

	// Initialize HTTP handlers
	leaseHandler := httpapi.NewLeaseHandler(leaseSvc)
	carHandler := httpapi.NewCarHandler(carSvc, auditSvc)
	webhookHandler := httpapi.NewWebhookHandler(verifier, webhookSvc)

	router := httpapi.NewRouter(tokenManager, leaseHandler, carHandler, webhookHandler)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	stopQueue()
	emailQueue.Wait()
	logger.Info("Server stopped. Goodbye!")
}
