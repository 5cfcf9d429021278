package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	billingapp "github.com/boletohub/backend/internal/application/billing"
	"github.com/boletohub/backend/internal/application/reconcile"
	"github.com/boletohub/backend/internal/infrastructure/adapters"
	"github.com/boletohub/backend/internal/infrastructure/auth"
	"github.com/boletohub/backend/internal/infrastructure/config"
	"github.com/boletohub/backend/internal/infrastructure/lock"
	"github.com/boletohub/backend/internal/infrastructure/logger"
	"github.com/boletohub/backend/internal/infrastructure/persistence"
	"github.com/boletohub/backend/internal/infrastructure/telemetry"
	"github.com/boletohub/backend/internal/interfaces/http/handler"
	"github.com/boletohub/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BoletoHub",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracer, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if tracer.IsEnabled() && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected")

	// Repositories
	clientRepo := persistence.NewGormClientRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)

	// Sync lock backed by Redis, falling back to a process-local lock
	// outside production
	lockFactory := lock.NewSyncLockFactory(cfg.Redis,
		lock.WithLogger(log),
		lock.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	syncLock, err := lockFactory.CreateLock()
	if err != nil {
		log.Fatal("Failed to create sync lock", zap.Error(err))
	}

	// Provider adapters
	registry := adapters.NewRegistry(cfg.Provider, log)

	// Application services
	clientService := billingapp.NewClientService(clientRepo, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, clientRepo, log)
	connectionService := reconcile.NewConnectionService(connectionRepo, log)
	importService := reconcile.NewImportService(clientRepo, invoiceRepo, connectionRepo, auditRepo, registry, syncLock, cfg.Provider, log)
	syncService := reconcile.NewSyncService(invoiceRepo, connectionRepo, auditRepo, registry, syncLock, cfg.Provider, log)
	bulkDeleteService := reconcile.NewBulkDeleteService(invoiceRepo, auditRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.NewEngine(cfg, log, tracer.IsEnabled())
	r := router.NewRouter(engine, jwtService, log)
	r.RegisterPublic(handler.NewSystemHandler())
	r.Register(handler.NewClientHandler(clientService))
	r.Register(handler.NewInvoiceHandler(invoiceService, bulkDeleteService,
		cfg.Provider.AmountTolerance, cfg.Provider.AmountTolerancePct))
	r.Register(handler.NewConnectionHandler(connectionService))
	r.Register(handler.NewReconcileHandler(importService, syncService, auditRepo))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
