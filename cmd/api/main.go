package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/config"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/events"
	kafkaevents "github.com/KumoDrift/BANK-TRANSACTION/internal/events/kafka"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/handler"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/logging"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/metrics"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/middleware"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/repository"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/service"
	"github.com/KumoDrift/BANK-TRANSACTION/internal/service/transfer"
)

func main() {
	// Local development convenience; in production the environment is set by
	// the deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("bank-transaction-api", cfg.LogLevel, cfg.AppEnv)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.Connect(connectCtx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	connectCancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	collector := metrics.NewCollector()

	var publisher transfer.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkaevents.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		slog.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		publisher = events.NewLogPublisher(logging.Component("events"))
	}

	notifier := service.NewNotifier(
		&service.LogEmailSender{Logger: logging.Component("notifier")},
		cfg.NotifierWorkers,
		cfg.NotifierQueueSize,
		logging.Component("notifier"),
	)

	transferSvc := transfer.NewService(
		repository.NewTransactionRepository(db),
		repository.NewAccountRepository(db),
		repository.NewLedgerRepository(db),
		notifier,
		publisher,
		collector,
		db,
	)

	accountSvc := service.NewAccountService(repository.NewAccountRepository(db))

	transferHandler := handler.NewTransferHandler(transferSvc)
	accountHandler := handler.NewAccountHandler(transferSvc, accountSvc)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.Handle("GET /metrics", collector.Handler())
	mux.HandleFunc("POST /api/v1/transfers", transferHandler.Create)
	mux.HandleFunc("GET /api/v1/transactions", transferHandler.GetByKey)
	mux.HandleFunc("GET /api/v1/transactions/{id}", transferHandler.Get)
	mux.HandleFunc("POST /api/v1/transactions/{id}/reverse", transferHandler.Reverse)
	mux.HandleFunc("POST /api/v1/accounts", accountHandler.Create)
	mux.HandleFunc("PATCH /api/v1/accounts/{id}/status", accountHandler.SetStatus)
	mux.HandleFunc("GET /api/v1/users/{id}/accounts", accountHandler.List)
	mux.HandleFunc("POST /api/v1/accounts/{id}/deposits", transferHandler.Deposit)
	mux.HandleFunc("GET /api/v1/accounts/{id}/balance", accountHandler.GetBalance)
	mux.HandleFunc("GET /api/v1/accounts/{id}/entries", accountHandler.GetStatement)

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := notifier.Shutdown(ctx); err != nil {
		slog.Error("notifier forced to shutdown", "error", err)
	}
	slog.Info("server stopped")
}
