package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"rentfolio-backend/internal/config"
	"rentfolio-backend/internal/jobs"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/provider"
	"rentfolio-backend/internal/repository/postgres"
	"rentfolio-backend/internal/scheduler"
	"rentfolio-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-stale-payments')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rentfolio Cronjob Runner...", "log_level", cfg.Log.Level)

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

	// Initialize Repositories and Services
	store := postgres.NewStore(db)
	paymentSvc := service.NewPaymentService(store, store, provider.NewSimulatedClient())

	jobRunner := jobs.NewJobRunner(paymentSvc, cfg)

	// Run-once mode for manual execution and debugging
	if *runOnce != "" {
		switch *runOnce {
		case "expire-stale-payments":
			jobRunner.ExpireStalePayments()
		default:
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		return
	}

	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	// Block until interrupted
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")
}
