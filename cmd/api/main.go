package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coopsolar/backoffice/internal/config"
	"github.com/coopsolar/backoffice/internal/database"
	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/finance"
	financeStore "github.com/coopsolar/backoffice/internal/finance/store"
	backofficeHttp "github.com/coopsolar/backoffice/internal/http"
	exportHandler "github.com/coopsolar/backoffice/internal/http/export"
	financeHandler "github.com/coopsolar/backoffice/internal/http/finance"
	importHandler "github.com/coopsolar/backoffice/internal/http/importcsv"
	invoiceHandler "github.com/coopsolar/backoffice/internal/http/invoice"
	matchingHandler "github.com/coopsolar/backoffice/internal/http/matching"
	transferHandler "github.com/coopsolar/backoffice/internal/http/transfer"
	"github.com/coopsolar/backoffice/internal/importer"
	"github.com/coopsolar/backoffice/internal/invoice"
	invoiceStore "github.com/coopsolar/backoffice/internal/invoice/store"
	"github.com/coopsolar/backoffice/internal/matching"
	matchingStore "github.com/coopsolar/backoffice/internal/matching/store"
	"github.com/coopsolar/backoffice/internal/metrics"
	"github.com/coopsolar/backoffice/internal/notify"
	"github.com/coopsolar/backoffice/internal/status"
	"github.com/coopsolar/backoffice/internal/transfer"
	transferStore "github.com/coopsolar/backoffice/internal/transfer/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.App.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("app", cfg.App.Name)
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	transitionOpts := []status.UpdaterOption{
		status.WithNotifier(notify.Multi{
			notify.NewLogger(nil),
			notify.NewMetrics(prometheus.DefaultRegisterer),
		}),
		status.WithAttempts(cfg.Transitions.MaxAttempts),
	}

	var (
		invoiceService  = invoice.NewService(invoiceStore.New(db), transitionOpts...)
		financeService  = finance.NewService(financeStore.New(db), transitionOpts...)
		transferService = transfer.NewService(transferStore.New(db), transitionOpts...)
		matchingService = matching.NewService(matchingStore.New(db))
		importService   = importer.NewService(matchingService)
		exportService   = export.NewService(invoiceService, cfg.Storage.Host, cfg.Storage.Token)
	)

	router := backofficeHttp.New(backofficeHttp.Handlers{
		Invoices:  invoiceHandler.NewHandler(invoiceService),
		Entries:   financeHandler.NewHandler(financeService),
		Transfers: transferHandler.NewHandler(transferService),
		Import:    importHandler.NewHandler(importService, financeService),
		Matching:  matchingHandler.NewHandler(matchingService),
		Export:    exportHandler.NewHandler(exportService),
	}, metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer), cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: 2 * cfg.Server.Timeout,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
