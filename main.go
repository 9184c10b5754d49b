package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jodli/geizhalsbot/config"
	"github.com/jodli/geizhalsbot/helpers"
	"github.com/jodli/geizhalsbot/internal"
	"github.com/jodli/geizhalsbot/internal/crawler"
	"github.com/jodli/geizhalsbot/internal/metrics"
	"github.com/jodli/geizhalsbot/internal/storage/sqlite"
	"github.com/jodli/geizhalsbot/internal/tracker"
	"github.com/jodli/geizhalsbot/logger"
	"github.com/jodli/geizhalsbot/services/cache"
	"github.com/jodli/geizhalsbot/services/publisher"
	"github.com/jodli/geizhalsbot/services/worker"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// failureTTL bounds how long a streak of fetch failures is remembered
const failureTTL = 7 * 24 * time.Hour

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("check_interval", cfg.CheckInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	deps, svc, err := buildService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Close()

	w := worker.NewWorker(
		svc,
		deps.Publisher,
		cache.NewFailureCounter(deps.Cache, failureTTL),
		deps.Alerts,
		deps.Metrics,
		worker.Config{
			Interval:      cfg.CheckInterval,
			Concurrency:   cfg.CheckConcurrency,
			RatePerSecond: cfg.CheckRatePerSecond,
			AlertAfter:    cfg.AlertAfterFailures,
		},
	)

	// Start worker in a goroutine
	workerDone := make(chan struct{})
	go func() {
		log.Info().Msg("Starting price check worker")
		w.Start(ctx)
		close(workerDone)
	}()

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case <-workerDone:
		log.Info().Msg("Worker exited")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// buildService loads the selectors, opens the dependencies and wires the
// tracker service. Selectors are loaded first so a bad file fails before
// anything needs closing.
func buildService(ctx context.Context, cfg *config.Config) (*internal.Dependencies, *tracker.Service, error) {
	selectors, err := crawler.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load selectors: %w", err)
	}

	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	scraper := crawler.NewCrawler(crawler.CrawlerConfig{
		Selectors: selectors,
		Fetcher:   helpers.NewHTTPFetcher(cfg.FetchTimeout),
	})

	svc := tracker.NewService(deps.Repository, scraper, tracker.Options{
		MaxSubscriptionsPerUser: cfg.MaxSubscriptionsPerUser,
	})
	return deps, svc, nil
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{
		Alerts:  helpers.NewAlertLog(cfg.AlertFile),
		Metrics: metrics.Nop{},
	}

	repo, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	deps.Repository = repo

	deps.Cache = newCache(cfg.MemcacheAddr)

	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		logger.ForPublisher().Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis not reachable yet, publishing will retry per notification")
	} else {
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}
	deps.Publisher = redisPublisher

	if cfg.MetricsAddr != "" {
		deps.Metrics = metrics.NewCollector(prometheus.DefaultRegisterer)
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	return deps, nil
}

// newCache returns memcache when reachable and an in-process cache otherwise
func newCache(addr string) cache.CacheService {
	if addr == "" {
		logger.ForCache().Info().Msg("No memcache configured, using in-process cache")
		return cache.NewMemoryCache()
	}

	mc := cache.NewMemcacheService(addr)
	if err := mc.Ping(); err != nil {
		logger.ForCache().Warn().Err(err).Str("addr", addr).Msg("Memcache not reachable, using in-process cache")
		return cache.NewMemoryCache()
	}

	logger.Info("Connected to Memcache at %s", addr)
	return mc
}

func serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.LogError("metrics", err, "Metrics server failed")
	}
}
