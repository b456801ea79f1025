package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/chart"
	"fintrack/internal/cli"
	"fintrack/internal/dashboard"
	"fintrack/internal/filter"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/taxonomy"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)

	tax, err := taxonomy.Load(cfg.CategoriesFile)
	if err != nil {
		logger.Error("Failed to load categories", log.FieldError, err, "path", cfg.CategoriesFile)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize transaction source", log.FieldError, err, "source", cfg.DataSource)
		os.Exit(1)
	}
	src := res.Source

	loader := dashboard.NewLoader(src, logger)
	charts := chart.NewRegistry()
	refresher := worker.NewRefreshWorker(loader, charts, logger)
	if cfg.RefreshSchedule != "" {
		if err := refresher.Schedule(cfg.RefreshSchedule); err != nil {
			logger.Error("Invalid refresh schedule", log.FieldError, err, "schedule", cfg.RefreshSchedule)
			os.Exit(1)
		}
	}

	// Without a broker, mutations refresh this process directly.
	var (
		notifier   services.RefreshNotifier = refresher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		notifier = amqpClient
	}

	svc := services.NewTransactionService(src, notifier, loader, logger)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Loader:   loader,
		Charts:   charts,
		Service:  svc,
		Taxonomy: tax,
		Ready: func(ctx context.Context) error {
			_, err := src.Summary(ctx, filter.Filter{})
			return err
		},
		Logger: logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close transaction service", log.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Failed to release transaction source", log.FieldError, err)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return refresher.Run(gctx) })
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeRefresh(gctx, refresher.HandleRefreshMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Initial cycle so charts exist before the first request.
	if err := refresher.NotifyRefresh(ctx, amqp.ReasonScheduled, ""); err != nil {
		logger.Warn("Failed to queue initial refresh", log.FieldError, err)
	}

	logger.Info("Starting fintrack dashboard", log.FieldOperation, log.OpStartup, "port", cfg.Port, "source", cfg.DataSource, "amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	if err := g.Wait(); err != nil {
		logger.Error("Background worker stopped", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
