package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"schmerzverlauf/internal/adapters/entries"
	"schmerzverlauf/internal/auth"
	"schmerzverlauf/internal/blob"
	"schmerzverlauf/internal/config"
	"schmerzverlauf/internal/core"
	"schmerzverlauf/internal/logging"
	"schmerzverlauf/internal/storage"
	"schmerzverlauf/internal/table"
)

// app is the wired tracker shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	blobs    blob.Store
	backend  storage.Backend
	svc      *core.Service
	exports  *entries.Exporter
	registry *prometheus.Registry
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewWriter(opts.stderr, cfg.Logging.Level, logging.Format(cfg.Logging.Format))
	if err != nil {
		return nil, err
	}
	format, err := cfg.TableFormat()
	if err != nil {
		return nil, err
	}

	blobs, err := blob.Open(ctx, cfg.BlobOptions())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	backend, err := storage.Open(ctx, cfg.StorageOptions(), blobs)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := core.NewPrometheusRecorder(registry)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	storeOpts := []table.StoreOption{table.WithFormat(format), table.WithLogger(logger.Component("table"))}
	svcOpts := []core.ServiceOption{
		core.WithLogger(logger.Component("core")),
		core.WithMetricsRecorder(recorder),
		core.WithMatchMode(cfg.MatchMode()),
	}
	if opts.trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(opts.stderr)))
	}
	svc := core.NewService(
		table.NewStore(core.PainTable, core.PainSchema, backend, storeOpts...),
		table.NewStore(core.MedicationTable, core.MedicationSchema, backend, storeOpts...),
		svcOpts...,
	)
	exports := entries.NewExporter(svc, blobs, logger.Component("export"))
	if cfg.Export.RowsPerPage > 0 {
		exports.RowsPerPage = cfg.Export.RowsPerPage
	}

	logger.Debug("tracker opened",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("blob", string(blobs.Driver())),
		zap.String("match", string(cfg.MatchMode())))

	return &app{
		cfg:      cfg,
		logger:   logger,
		blobs:    blobs,
		backend:  backend,
		svc:      svc,
		exports:  exports,
		registry: registry,
	}, nil
}

func (a *app) handler() *entries.Handler {
	return entries.NewHandler(a.svc, auth.NewManager(a.cfg.Auth.Secret), a.exports, a.logger.Component("http"))
}

func (a *app) Close() error {
	err := a.backend.Close()
	// Sync fails on terminals and pipes; nothing is lost on those.
	_ = a.logger.Sync()
	return err
}
