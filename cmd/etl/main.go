package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkaadapter "github.com/couchcryptid/grid-capacity-etl/internal/adapter/kafka"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/projection"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/source"
	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/store"
	"github.com/couchcryptid/grid-capacity-etl/internal/config"
	"github.com/couchcryptid/grid-capacity-etl/internal/observability"
	"github.com/couchcryptid/grid-capacity-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	force := flag.Bool("force", false, "rebuild the canonical table even if it already exists")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address while the run is in progress")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sources, err := pipeline.SourcesFromConfig(cfg)
	if err != nil {
		logger.Error("failed to resolve sources", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	loader := source.NewLoader(cfg.SourceEncoding, source.PDFOptions{
		Password:     cfg.PDFPassword,
		MaxPages:     cfg.PDFMaxPages,
		RowTolerance: cfg.PDFRowTolerance,
	}, metrics, logger)
	transformer := projection.NewCachedTransformer(projection.NewUTM(), cfg.ProjectionCacheSize, metrics.ProjectionCache)

	sinks, closeSinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sinks", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(loader, transformer, sinks, pipeline.Options{
		OutputPath: cfg.OutputPath,
		XLSXPath:   cfg.OutputXLSXPath,
		Workers:    cfg.Workers,
		MinRadius:  cfg.MinRadius,
		MaxRadius:  cfg.MaxRadius,
		Force:      *force,
	}, logger, metrics)

	report, runErr := p.Run(ctx, sources)
	if runErr == nil {
		if err := report.WriteSummary(os.Stdout); err != nil {
			logger.Error("failed to write summary", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	closeSinks()

	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		os.Exit(1)
	}
}

// openSinks builds the configured secondary sinks. The returned func
// closes whatever was opened.
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Sinks, func(), error) {
	var (
		sinks   pipeline.Sinks
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}

	if cfg.DBDriver != "" {
		st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN, logger)
		if err != nil {
			return pipeline.Sinks{}, nil, err
		}
		sinks.Store = st
		closers = append(closers, st.Close)
		logger.Info("snapshot store enabled", "driver", cfg.DBDriver)

		prev, ok, err := st.LatestRun(ctx)
		switch {
		case err != nil:
			logger.Warn("could not read previous run", "error", err)
		case ok:
			logger.Info("previous run", "run_id", prev.ID, "finished_at", prev.FinishedAt, "records", prev.Records, "dropped", prev.Dropped)
		}
	}

	if cfg.KafkaEnabled {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		sinks.Publisher = pub
		closers = append(closers, pub.Close)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	if cfg.S3Endpoint != "" {
		up, err := objectstore.NewUploader(cfg, logger)
		if err != nil {
			closeAll()
			return pipeline.Sinks{}, nil, err
		}
		sinks.Uploader = up
		logger.Info("object storage upload enabled", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	}

	return sinks, closeAll, nil
}
