package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "donorlink-backend/internal/api/http"
	"donorlink-backend/internal/config"
	"donorlink-backend/internal/logger"
	"donorlink-backend/internal/repository/postgres"
	"donorlink-backend/internal/security"
	"donorlink-backend/internal/service"
	"donorlink-backend/internal/storage"
	"donorlink-backend/internal/workflow"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting DonorLink Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	tokenManager := security.NewTokenManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Minute,
	)

	docStore, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	guard := workflow.NewGuard()
	guard.AllowEligibilityReopen = cfg.Workflow.AllowEligibilityReopen

	emailSvc := service.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.User,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	authSvc := service.NewAuthService(
		store.BankRepository,
		store.DonorRepository,
		store.AdminRepository,
		tokenManager,
		emailSvc,
	)
	donorSvc := service.NewDonorService(
		store,
		store.DonorRepository,
		store.BankRepository,
		store.ConsentRepository,
		store.CounselingRepository,
		store.TestReportRepository,
		store.HistoryRepository,
		guard,
		emailSvc,
	)
	bankSvc := service.NewBankService(
		store,
		store.BankRepository,
		store.DonorRepository,
		store.ConsentRepository,
		store.CounselingRepository,
		store.TestReportRepository,
		store.HistoryRepository,
		guard,
		emailSvc,
	)
	adminSvc := service.NewAdminService(
		store,
		store.BankRepository,
		store.DonorRepository,
		store.HistoryRepository,
		store.ActivityLogRepository,
		store.AnalyticsRepository,
		guard,
		emailSvc,
	)
	docSvc := service.NewDocumentService(docStore)

	routerCfg := httpapi.RouterConfig{
		AuthSvc:  authSvc,
		DonorSvc: donorSvc,
		BankSvc:  bankSvc,
		AdminSvc: adminSvc,
		DocSvc:   docSvc,
		Tokens:   tokenManager,
	}
	if cfg.Storage.Type == "" || cfg.Storage.Type == "mock" {
		routerCfg.FileStore = docStore
	}

	router := httpapi.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
