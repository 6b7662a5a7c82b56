package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"recurring_ledger_scheduler/internal/app"
	"recurring_ledger_scheduler/internal/domain/clock"
	"recurring_ledger_scheduler/internal/domain/notify"
	"recurring_ledger_scheduler/internal/infra/config"
	idb "recurring_ledger_scheduler/internal/infra/database"
	"recurring_ledger_scheduler/internal/infra/logger"
	"recurring_ledger_scheduler/internal/infra/scheduler"
	"recurring_ledger_scheduler/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLog := logger.Component("main")
	mainLog.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Database connection and migrations
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLog.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLog.Info("Database connection established successfully.")

	if cfg.AutoMigrate {
		if err := idb.RunMigrations(db, cfg.MigrationsURL); err != nil {
			mainLog.Fatalf("Could not run database migrations: %v", err)
		}
		mainLog.Info("Database migrations applied.")
	}

	// Repositories and collaborators
	ruleRepo := idb.NewPostgresRuleRepository(db)
	execRepo := idb.NewPostgresExecutionRepository(db)
	ledgerStore := idb.NewPostgresLedger(db)
	systemClock := clock.System{}

	// Ops notifier (optional)
	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramToken != "" {
		tgNotifier, err := telegram.NewNotifier(cfg.TelegramToken, cfg.AdminTelegramID)
		if err != nil {
			mainLog.Fatalf("Could not create telegram notifier: %v", err)
		}
		notifier = tgNotifier
		mainLog.Info("Telegram ops notifier initialized.")
	}

	// Services
	engine := app.NewExecutionService(ruleRepo, execRepo, ledgerStore, systemClock, logger.Component("execution"))
	batchService := app.NewBatchService(ruleRepo, engine, systemClock, logger.Component("batch"))
	retryService := app.NewRetryService(execRepo, engine, cfg.RetryMaxAttempts, logger.Component("retry"))
	mainLog.Info("Scheduler services initialized.")

	// Periodic triggers
	batchScheduler := scheduler.NewBatchScheduler(
		batchService,
		retryService,
		notifier,
		logger.Component("scheduler"),
		cfg.CronSpecProcessDue,
		cfg.CronSpecRetryFailed,
	)
	if err := batchScheduler.Start(); err != nil {
		mainLog.Fatalf("Could not start batch scheduler: %v", err)
	}

	mainLog.Info("Application setup complete. Scheduler is running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLog.Info("Shutting down application...")
	batchScheduler.Stop()
	mainLog.Info("Application shut down gracefully.")
}
