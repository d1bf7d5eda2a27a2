package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pgharvest/pgharvest/internal/config"
	"github.com/pgharvest/pgharvest/internal/dataset"
	"github.com/pgharvest/pgharvest/internal/dataset/typedict"
	"github.com/pgharvest/pgharvest/internal/extract"
	"github.com/pgharvest/pgharvest/internal/observability"
	"github.com/pgharvest/pgharvest/internal/source"
	s3store "github.com/pgharvest/pgharvest/internal/storage/s3"
	"github.com/pgharvest/pgharvest/internal/upload"
)

func main() {
	cfg, err := config.LoadFromEnv("pgharvest-extractor")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	specs, err := extract.LoadSpecs(cfg.Extract.QueriesFile)
	if err != nil {
		logger.Error("failed to load queries", slog.Any("error", err))
		os.Exit(1)
	}

	orchestrator := &extract.Orchestrator{
		Runner: &extract.Runner{
			Materializer: &dataset.Materializer{
				TenantID: cfg.Extract.TenantID,
				Adjuster: typedict.Default(),
				Logger:   logger,
			},
			Logger: logger,
		},
		Sessions: extract.SourceSessions{
			Config: source.Config{
				Host:     cfg.Source.Host,
				Port:     cfg.Source.Port,
				Database: cfg.Source.Database,
				User:     cfg.Source.User,
				Password: cfg.Source.Password,
			},
		},
		Logger:  logger,
		Workers: cfg.Extract.Workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("extraction started",
		slog.Int("queries", len(specs)),
		slog.Bool("parallel", cfg.Extract.Parallel),
		slog.Int("workers", cfg.Extract.Workers),
	)

	result, err := orchestrator.RunAll(ctx, specs, cfg.Extract.TempRoot, cfg.Extract.Parallel)
	if err != nil {
		logger.Error("extraction failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("extraction finished",
		slog.Int("queries", len(specs)),
		slog.Int("datasets", len(result.DatasetPaths)),
	)

	if cfg.ObjectStore.Enabled {
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		shipper := &upload.Shipper{Store: store, Logger: logger}
		if _, err := shipper.Ship(ctx, result); err != nil {
			logger.Error("upload failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
