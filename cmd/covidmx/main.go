package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/text/language"

	"covidmx/internal/amqp"
	"covidmx/internal/cache"
	"covidmx/internal/cli"
	apphttp "covidmx/internal/http"
	applog "covidmx/internal/log"
	"covidmx/internal/render"
	"covidmx/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	datasets, err := cli.NewDatasets(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err.Error(), applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer datasets.Close()

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(datasets.Tables)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	catalog, err := render.LoadCatalog()
	if err != nil {
		logger.Error("Failed to load chart catalog", applog.FieldError, err.Error())
		os.Exit(1)
	}
	renderer, err := render.NewRenderer(catalog, language.MustParse("es-MX"))
	if err != nil {
		logger.Error("Failed to initialize renderer", applog.FieldError, err.Error())
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.Proxies(),
	}, datasets.Service, renderer, logger)
	if err != nil {
		logger.Error("Failed to initialize HTTP server", applog.FieldError, err.Error())
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
	})
	defer cancel()

	cacheWorker := worker.NewCacheWorker(datasets.Service, logger, cfg.ReloadOnImport)
	if cfg.CacheWarmup {
		go func() {
			if err := cacheWorker.Warmup(ctx); err != nil {
				logger.Warn("Cache warmup failed", applog.FieldError, err.Error())
			}
		}()
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeDatasetImported(ctx, cacheWorker.HandleDatasetImported)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err.Error())
			}
		}()
		logger.Info("Listening for dataset imports", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - cache is only invalidated by refresh and TTL")
	}

	logger.Info("Starting covidmx server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		cancel()
		<-done
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
