// Package main is the entry point for the search API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/marqueehq/marquee/internal/api"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/db"
	"github.com/marqueehq/marquee/internal/health"
	"github.com/marqueehq/marquee/internal/middleware"
	"github.com/marqueehq/marquee/internal/ranking"
	"github.com/marqueehq/marquee/internal/search"
	"github.com/marqueehq/marquee/internal/store"
	"github.com/marqueehq/marquee/internal/tracing"
)

const serviceName = "marquee-search"

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Marquee Search API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	tracer, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// A broken calibration file falls back to defaults rather than
	// blocking startup.
	bonuses, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("calibration load failed, running on defaults", "error", err)
	}

	pg := store.NewPostgres(pool, logger)
	svc := search.NewService(search.Providers{
		Events:     pg,
		Venues:     pg,
		Organizers: pg,
		Series:     pg,
		Lists:      pg,
		Facets:     pg,
		Spelling:   pg,
	}, bonuses, logger)

	metrics := middleware.NewMetrics()
	svc.OnProviderError(func(kind search.Kind) {
		metrics.IncSearchProviderErrors(string(kind))
	})
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it the response cache is disabled and
	// rate limiting falls back to per-replica in-memory state.
	var (
		responseCache cache.ResponseCache
		redisChecker  api.HealthChecker
		limitStore    middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		responseCache = cache.NewRedis(client, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
		redisChecker = health.NewRedisChecker(client)
		limitStore = middleware.NewRedisRateLimitStore(client).WithMetrics(metrics)
	}

	searchHandlers := api.NewSearchHandlers(api.SearchHandlersConfig{
		Service:          svc,
		Cache:            responseCache,
		Metrics:          metrics,
		Logger:           logger,
		IntentAnalysis:   cfg.IntentAnalysis,
		ExactMatchBoosts: cfg.ExactMatchBoosts,
	})
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(pool),
		RedisChecker: redisChecker,
	})

	searchLimit := middleware.RateLimiter(limitStore, middleware.DefaultSearchLimit(), middleware.IPKeyFunc())
	suggestLimit := middleware.RateLimiter(limitStore, middleware.DefaultSuggestLimit(), middleware.IPKeyFunc())

	mux := http.NewServeMux()
	mux.Handle("/search", searchLimit(http.HandlerFunc(searchHandlers.Search)))
	mux.Handle("/search/actions", suggestLimit(http.HandlerFunc(searchHandlers.QuickActions)))
	mux.Handle("/search/suggestions", suggestLimit(http.HandlerFunc(searchHandlers.Suggestions)))
	mux.HandleFunc("/healthz", healthHandlers.Health)
	mux.HandleFunc("/readyz", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware chain, outermost first: RequestID -> Tracing -> Logging
	// -> HTTPMetrics -> CORS -> global rate limit -> mux.
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if tracer.IsEnabled() {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
