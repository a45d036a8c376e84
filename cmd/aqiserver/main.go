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

	"github.com/couchcryptid/county-aqi-risk/internal/adapter/cache"
	"github.com/couchcryptid/county-aqi-risk/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/county-aqi-risk/internal/adapter/kafka"
	"github.com/couchcryptid/county-aqi-risk/internal/adapter/postgres"
	"github.com/couchcryptid/county-aqi-risk/internal/config"
	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/observability"
	"github.com/couchcryptid/county-aqi-risk/internal/pipeline"
	"github.com/couchcryptid/county-aqi-risk/internal/report"
	"github.com/couchcryptid/county-aqi-risk/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, err := newLoader(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure data source", "error", err)
		os.Exit(1)
	}

	ready := httpadapter.Readiness{}
	var closers []func() error

	// View cache: in-process LRU, backed by Redis when REDIS_URL is set.
	var viewCache dashboard.ViewCache
	if cfg.ViewCacheSize > 0 {
		viewCache = cache.NewLRU(cfg.ViewCacheSize)
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisFromURL(cfg.RedisURL, cache.DefaultTTL)
		if err != nil {
			logger.Error("failed to configure redis", "error", err)
			os.Exit(1)
		}
		viewCache = cache.NewLayered(cache.NewLRU(max(cfg.ViewCacheSize, 1)), rc)
		ready = append(ready, rc)
		closers = append(closers, rc.Close)
		logger.Info("redis view cache enabled")
	}

	var sinks []dashboard.Sink
	var archive dashboard.SnapshotArchive

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		a := postgres.NewArchive(db)
		archive = a
		sinks = append(sinks, dashboard.Sink{Name: "postgres", Publisher: a})
		ready = append(ready, a)
		closers = append(closers, db.Close)
		logger.Info("snapshot archive enabled")
	}

	if cfg.ReportDir != "" {
		sinks = append(sinks, dashboard.Sink{Name: "report", Publisher: &report.DirSink{
			Dir:        cfg.ReportDir,
			TopN:       cfg.DefaultTopN,
			DJTopK:     cfg.DJTopK,
			Exclusions: cfg.Exclusions,
			Logger:     logger,
		}})
		logger.Info("report sink enabled", "dir", cfg.ReportDir)
	}

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, dashboard.Sink{Name: "kafka", Publisher: writer})
	}

	defaults := dashboard.DefaultParams()
	defaults.Scope = cfg.DefaultScope
	defaults.Percentile = cfg.DefaultPercentile
	defaults.TopChronic = cfg.DefaultTopN
	defaults.TopAcute = cfg.DefaultTopN
	defaults.TopLivable = cfg.DefaultTopN
	defaults.DJTopK = cfg.DJTopK

	svc := dashboard.NewService(loader, dashboard.Options{
		Defaults:   defaults,
		Exclusions: cfg.Exclusions,
		Cache:      viewCache,
		Sinks:      sinks,

		PublishInterval: cfg.SnapshotPublishInterval,
	}, logger, metrics)
	ready = append(ready, svc)

	// A failed initial load leaves the service unready; POST /api/v1/reload
	// or stream ingest can recover it.
	if _, err := svc.Reload(ctx); err != nil {
		logger.Error("initial dataset load failed", "error", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, httpadapter.Options{
		AllowedOrigins: cfg.CORSOrigins,
		Archive:        archive,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipeline.
	if cfg.KafkaEnabled {
		p := pipeline.New(reader, pipeline.NewTransformer(logger), svc, logger, metrics, cfg.BatchSize)
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	svc.Flush(shutdownCtx)
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newLoader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dashboard.Loader, error) {
	switch cfg.DataSource {
	case config.SourceDir:
		logger.Info("data source: annual csv directory", "dir", cfg.DataDir, "glob", cfg.DataGlob)
		return source.NewDirLoader(cfg.DataDir, cfg.DataGlob, logger), nil
	case config.SourceS3:
		client, err := source.NewS3Client(ctx, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		logger.Info("data source: s3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return source.NewS3Loader(client, cfg.S3Bucket, cfg.S3Prefix, cfg.DataGlob, logger), nil
	case config.SourceSummary:
		logger.Info("data source: precomputed summary", "path", cfg.SummaryPath)
		return source.SummaryLoader{Path: cfg.SummaryPath}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}
