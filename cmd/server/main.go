package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/app"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/booking"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/config"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/db"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/obs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.IsProduction(), cfg.LogLevel)
	slog.SetDefault(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	appCfg := app.Config{Settings: cfg, Logger: logger}

	// Connect store
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsurePostgresSchema(ctx, pool); err != nil {
			return err
		}
		appCfg.DBPool = pool
	case config.StoreDriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := booking.NewSQLiteRepository(conn).Migrate(ctx); err != nil {
			return err
		}
		appCfg.SQLDB = conn
	}

	// Mail transport
	switch cfg.MailTransport {
	case config.MailTransportAMQP:
		relay, err := notification.NewRelayMailer(cfg.MailRelayURL, cfg.MailRelayExchange)
		if err != nil {
			return err
		}
		defer relay.Close()
		appCfg.Mailer = relay
	default:
		appCfg.Mailer = notification.NewLogMailer(logger)
	}

	container, err := app.NewContainer(appCfg)
	if err != nil {
		return err
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "mail", cfg.MailTransport)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", "error", err)
	}
	// Let confirmations already handed to the dispatcher go out.
	if err := container.Dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}

	logger.Info("server exited gracefully")
	return nil
}
