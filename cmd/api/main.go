package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/events"
	"moneta/internal/ledger"
	"moneta/internal/logger"
	"moneta/internal/server"
	"moneta/internal/services"
	"moneta/internal/validator"
)

// @title           Moneta API
// @version         1.0
// @description     Moneta tracks wallets, categories and transactions, keeping every wallet balance equal to its opening balance plus the signed sum of its transactions.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(appConfig.Env, appConfig.LogLevel)
	defer logger.Sync()
	log := logger.Get()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("database close error", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	reporters := events.MultiReporter{events.NewLogReporter(logger.Named("ledger"))}
	if appConfig.AMQPURL != "" {
		amqpReporter, err := events.NewAMQPReporter(appConfig.AMQPURL, appConfig.AMQPExchange, logger.Named("amqp"))
		if err != nil {
			return fmt.Errorf("failed to connect integrity event broker: %w", err)
		}
		defer func() {
			if err := amqpReporter.Close(); err != nil {
				log.Warnw("integrity event broker close error", "error", err)
			}
		}()
		reporters = append(reporters, amqpReporter)
		log.Infow("Publishing ledger integrity events", "exchange", appConfig.AMQPExchange)
	}

	db := dbManager.DB()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}

	validator.Register()
	handler := server.NewRouter(appConfig, server.Services{
		Wallets:      services.NewWalletService(db),
		Categories:   services.NewCategoryService(db),
		Transactions: services.NewTransactionService(db, ledger.NewReconciler(reporters)),
		Audit:        services.NewAuditService(db),
		DB:           sqlDB,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      appConfig.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Moneta server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("Server stopped gracefully")
	return nil
}
