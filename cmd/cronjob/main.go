package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"citycar-backend/internal/cache"
	"citycar-backend/internal/config"
	"citycar-backend/internal/jobs"
	"citycar-backend/internal/logger"
	"citycar-backend/internal/payment"
	"citycar-backend/internal/queue"
	"citycar-backend/internal/repository/postgres"
	"citycar-backend/internal/scheduler"
	"citycar-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-leases', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CityCar Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Redis
	redisClient, err := cache.Connect(context.Background(), cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize dependencies of the sweeps. The cronjob only enqueues
	// notification jobs; the server's workers deliver them.
	cacheStore := cache.NewStore(redisClient, time.Duration(cfg.Redis.CacheTTLHrs)*time.Hour)
	gateway := payment.NewStripeGateway(
		cfg.Stripe.SecretKey,
		cfg.Stripe.Currency,
		time.Duration(cfg.Stripe.TimeoutSeconds)*time.Second,
	)
	emailQueue := queue.New(redisClient, queue.Options{
		Name:        cfg.Queue.Name,
		Workers:     cfg.Queue.Workers,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Backoff:     time.Duration(cfg.Queue.BackoffSeconds) * time.Second,
	})

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

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(leaseSvc, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "expire-leases":
		jobRunner.ExpireLeases()
	case "send-lease-reminders":
		jobRunner.SendLeaseReminders()
	case "release-stale-holds":
		jobRunner.ReleaseStaleHolds()
	case "all":
		jobRunner.RunAllJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-leases\n")
		fmt.Printf("  - send-lease-reminders\n")
		fmt.Printf("  - release-stale-holds\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
