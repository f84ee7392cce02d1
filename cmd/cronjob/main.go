package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"donorlink-backend/internal/config"
	"donorlink-backend/internal/jobs"
	"donorlink-backend/internal/logger"
	"donorlink-backend/internal/repository/postgres"
	"donorlink-backend/internal/scheduler"
	"donorlink-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-subscriptions', 'send-expiry-reminders', 'all')")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting DonorLink Cronjob Runner...", "log_level", cfg.Log.Level)

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	emailSvc := service.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.User,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	jobRunner := jobs.NewJobRunner(store, emailSvc, cfg)

	if *runOnce != "" {
		runSingleJob(jobRunner, *runOnce)
		return
	}

	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	logger.Info("Cronjob runner started",
		"expire_subscriptions", cfg.Scheduler.ExpireSubscriptions,
		"send_expiry_reminders", cfg.Scheduler.SendExpiryReminders)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down cronjob runner...")
}

func runSingleJob(jr *jobs.JobRunner, name string) {
	switch name {
	case "expire-subscriptions":
		jr.ExpireSubscriptions()
	case "send-expiry-reminders":
		jr.SendExpiryReminders()
	case "all":
		jr.RunAll()
	default:
		log.Fatalf("Unknown job %q", name)
	}
}
