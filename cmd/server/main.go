package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/NelsonWelser1/dairyledger/internal/config"
	"github.com/NelsonWelser1/dairyledger/internal/repository/mongodb"
	"github.com/NelsonWelser1/dairyledger/internal/scheduler"
	"github.com/NelsonWelser1/dairyledger/internal/server/handlers"
	"github.com/NelsonWelser1/dairyledger/internal/server/router"
	withdrawalsvc "github.com/NelsonWelser1/dairyledger/internal/service/withdrawal"
	"github.com/NelsonWelser1/dairyledger/internal/throttle"
	"github.com/NelsonWelser1/dairyledger/pkg/clients/webhook"
	"github.com/NelsonWelser1/dairyledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.UseTransactions, baseLogger.Named("repo.mongo"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	withdrawThrottle := throttle.NewKeeper(cfg.Throttle.WithdrawalWindow, baseLogger.Named("throttle.withdrawal"))
	defer withdrawThrottle.Stop()

	depositThrottle := throttle.NewKeeper(cfg.Throttle.DepositWindow, baseLogger.Named("throttle.deposit"))
	defer depositThrottle.Stop()

	var notifier withdrawalsvc.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notifier = webhook.NewClient(cfg.Notifier.WebhookURL, baseLogger.Named("clients.webhook"))
		baseLogger.Info("event webhook enabled")
	} else {
		baseLogger.Warn("event webhook url missing, ledger event delivery disabled")
	}

	ledgerSvc := withdrawalsvc.NewService(mongoRepo, cfg.Tanks.Names, withdrawThrottle, depositThrottle, notifier, baseLogger.Named("svc.withdrawal"))
	ledgerHandler := handlers.NewLedgerHandler(ledgerSvc, baseLogger.Named("handlers.ledger"))
	engine := router.New(ledgerHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reconcile, mongoRepo, cfg.Tanks.Names, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
