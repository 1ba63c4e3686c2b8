package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	importhandler "github.com/agrocampo/farm-ops/internal/domain/bulkimport/handler"
	importrepo "github.com/agrocampo/farm-ops/internal/domain/bulkimport/repository"
	importservice "github.com/agrocampo/farm-ops/internal/domain/bulkimport/service"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/agrocampo/farm-ops/pkg/config"
	"github.com/agrocampo/farm-ops/pkg/cron"
	"github.com/agrocampo/farm-ops/pkg/db"
	"github.com/agrocampo/farm-ops/pkg/metrics"
	"github.com/agrocampo/farm-ops/pkg/push"
	"github.com/agrocampo/farm-ops/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	CatalogRepo *importrepo.PostgresCatalogRepository
	RecordRepo  *importrepo.PostgresRecordRepository

	// Services
	ImportService  *importservice.ImportService
	Scheduler      *cron.Scheduler
	Metrics        *metrics.ImportMetrics
	Registry       *prometheus.Registry
	TracerProvider *sdktrace.TracerProvider

	// Handlers
	ImportHandler *importhandler.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices initializes the repository and service layers
func (d *Dependencies) initServices() error {
	// Register the tracer provider before any service grabs a tracer.
	// Exporters attach to it per deployment; without one the spans still
	// record and propagate instead of no-opping.
	d.TracerProvider = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(d.TracerProvider)

	d.CatalogRepo = importrepo.NewPostgresCatalogRepository(d.DB.Pool)
	d.RecordRepo = importrepo.NewPostgresRecordRepository(d.DB.Pool)

	d.Registry = prometheus.NewRegistry()
	d.Metrics = metrics.New(d.Registry)

	var notifier importservice.Notifier
	if token := d.Config.Import.NotifyToken; token != "" {
		notifier = push.NewImportNotifier(push.NewClient(d.Logger), token, d.Logger)
	} else {
		notifier = push.LogNotifier{Logger: d.Logger}
	}

	d.ImportService = importservice.NewImportService(
		d.CatalogRepo,
		d.RecordRepo,
		notifier,
		d.Metrics,
		d.Logger,
		d.Config.Import.SessionTTL,
	)

	d.Scheduler = cron.NewScheduler(d.ImportService, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes the HTTP layer
func (d *Dependencies) initHandlers() error {
	var archiver storage.Archiver
	if dir := d.Config.Import.UploadDir; dir != "" {
		a, err := storage.NewLocalArchiver(dir)
		if err != nil {
			return fmt.Errorf("failed to init upload archive: %w", err)
		}
		archiver = a
	}

	d.ImportHandler = importhandler.NewHandler(d.ImportService, archiver, d.Logger)
	return nil
}

// Close releases everything in reverse initialization order.
func (d *Dependencies) Close() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.TracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.TracerProvider.Shutdown(ctx); err != nil {
			d.Logger.Warn("tracer provider shutdown failed", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
