package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	api "rentfolio-backend/internal/api/http"
	"rentfolio-backend/internal/config"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/provider"
	"rentfolio-backend/internal/repository/postgres"
	"rentfolio-backend/internal/security"
	"rentfolio-backend/internal/service"
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
	logger.Info("Starting Rentfolio Ledger Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
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

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize Provider Client
	providerClient := provider.NewSimulatedClient()

	// Initialize Services
	withdrawalSvc := service.NewWithdrawalService(store, store, cfg.Withdrawal)
	paymentSvc := service.NewPaymentService(store, store, providerClient)
	webhookSvc := service.NewWebhookService(store)
	noteSvc := service.NewNotificationService(store.Notifications())

	// Initialize Handlers
	withdrawalHandler := api.NewWithdrawalHandler(withdrawalSvc)
	paymentHandler := api.NewPaymentHandler(paymentSvc, noteSvc)
	webhookHandler := api.NewWebhookHandler(webhookSvc, cfg.Webhook.Secret)

	router := api.NewRouter(tokenManager, withdrawalHandler, paymentHandler, webhookHandler)
	serve(cfg, router)
}

func serve(cfg *config.Config, router *mux.Router) {
	addr := cfg.GetServerAddress()
	logger.Info("HTTP server listening", "address", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("HTTP server stopped", "error", err)
		log.Fatalf("HTTP server stopped: %v", err)
	}
}
