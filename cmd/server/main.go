package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/grid-capacity-etl/internal/adapter/http"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/store"
	"github.com/couchcryptid/grid-capacity-etl/internal/config"
	"github.com/couchcryptid/grid-capacity-etl/internal/observability"
	"github.com/couchcryptid/grid-capacity-etl/internal/view"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots := view.NewStore(cfg.OutputPath, cfg.MinRadius, cfg.MaxRadius, metrics, logger)
	ready := httpadapter.Readiness{snapshots}

	if cfg.DBDriver != "" {
		st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN, logger)
		if err != nil {
			logger.Error("failed to open snapshot store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		ready = append(ready, st)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, snapshots, ready, cfg.CORSOrigins, logger)

	go func() {
		logger.Info("serving capacity table", "addr", cfg.HTTPAddr, "path", cfg.OutputPath)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
