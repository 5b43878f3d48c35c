package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetpal/internal/backend"
	"budgetpal/internal/cache"
	"budgetpal/internal/cli"
	"budgetpal/internal/core"
	apphttp "budgetpal/internal/http"
	applog "budgetpal/internal/log"
	"budgetpal/internal/middleware/ratelimit"
	"budgetpal/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	outlookCache := cache.NewLRUCache[core.MonthOutlook](cfg.OutlookCacheSize, cfg.OutlookCacheTTL)
	caches := cache.NewManager()
	caches.Register(outlookCache)

	payments := services.NewPaymentService(res.Store, res.Publisher(), core.SystemClock{})
	outlook := services.NewOutlookService(payments, outlookCache)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	srv := apphttp.NewServer(":"+cfg.Port, payments, outlook, apphttp.Options{
		Logger:  logger.WithComponent(applog.ComponentHTTP),
		Limiter: limiter,
		Ready:   res.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetpal server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", res.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(gctx, cfg.CacheCleanupInterval)
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext(30 * time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	m := srv.Metrics()
	logger.Info("Server stopped gracefully", "requests", m.TotalRequests, "avg_response_time", m.AverageResponseTime)
}
