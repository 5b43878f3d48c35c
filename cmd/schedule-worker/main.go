package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetpal/internal/backend"
	"budgetpal/internal/cli"
	"budgetpal/internal/config"
	"budgetpal/internal/core"
	applog "budgetpal/internal/log"
	"budgetpal/internal/services"
	"budgetpal/internal/sheets"
	gsheet "budgetpal/internal/sheets/google"
	"budgetpal/internal/sheets/memory"
	"budgetpal/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting schedule-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the schedule worker")
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize schedule mirror", "error", err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer res.Cleanup()
	if res.AMQP == nil {
		logger.Error("AMQP broker unreachable, cannot consume schedules", "queue", cfg.AMQPQueue)
		os.Exit(1)
	}

	var opts []worker.Option
	if bcfg.Type.Shared() {
		opts = append(opts, worker.WithOrphanPruning())
	}
	sw := worker.NewScheduleWorker(mirror, opts...)
	if err := sw.LoadVersions(ctx, mirror); err != nil {
		// Without versions every message is applied; ordering is restored by Reconcile.
		logger.Warn("Failed to load mirrored versions", "error", err)
	}

	// Payments are read without a publisher; the worker only mirrors.
	payments := services.NewPaymentService(res.Store, nil, core.SystemClock{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := res.AMQP.ConsumeSchedules(gctx, sw)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if bcfg.Type.Shared() {
		g.Go(func() error {
			return reconcileLoop(gctx, sw, payments, cfg.ReconcileInterval, logger)
		})
	} else {
		// A memory store here is not the API server's store.
		logger.Warn("Reconcile disabled: backend is process-local, mirroring from messages only",
			"backend", bcfg.Type.String())
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func newMirror(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.ScheduleMirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - mirroring schedules in memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetBase:       cfg.GoogleScheduleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", client.SheetName())
	return client, nil
}

// reconcileLoop runs once at startup to catch messages missed while the
// worker was down, then on every tick.
func reconcileLoop(ctx context.Context, sw *worker.ScheduleWorker, src worker.ScheduleSource, every time.Duration, logger *applog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := sw.Reconcile(ctx, src); err != nil && ctx.Err() == nil {
			logger.Error("Schedule reconcile failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
