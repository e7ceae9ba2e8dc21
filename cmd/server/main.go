package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "cineforge/promptsearch/internal/api/http"
	"cineforge/promptsearch/internal/app"
	"cineforge/promptsearch/internal/metrics"
	"cineforge/promptsearch/internal/providers/gemini"
	"cineforge/promptsearch/internal/providers/tmdb"
	"cineforge/promptsearch/internal/search"
	"cineforge/promptsearch/internal/telemetry"
)

const serviceName = "prompt-search"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Duration("callTimeout", cfg.CallTimeout),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasGeminiKey", cfg.GeminiAPIKey != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
		slog.Int("anchorYear", cfg.AnchorYear),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := buildRedisClient(rootCtx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	tmdbClient := buildTMDBClient(cfg, redisClient, logger)
	geminiClient := buildGeminiClient(rootCtx, cfg, logger)
	if geminiClient != nil {
		defer geminiClient.Close()
	}

	opts := buildServiceOptions(cfg, redisClient)
	if geminiClient != nil {
		opts = append(opts, search.WithCompletion(geminiClient))
	}
	searchService := search.NewService(tmdbClient, cfg.RequestTimeout, opts...)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.HTTPRateLimit, 0),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("prompt search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Bool("catalogEnabled", tmdbClient.Enabled()),
		slog.Bool("completionEnabled", geminiClient != nil && geminiClient.Enabled()),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("prompt search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildRedisClient returns nil when REDIS_URL is unset, invalid or
// unreachable; callers fall back to in-process caches.
func buildRedisClient(ctx context.Context, cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

func buildServiceOptions(cfg app.Config, redisClient *redis.Client) []search.ServiceOption {
	opts := []search.ServiceOption{
		search.WithCallTimeout(cfg.CallTimeout),
		search.WithAnchorYear(cfg.AnchorYear),
	}
	if cfg.CacheDisabled {
		return append(opts, search.WithCacheDisabled(true))
	}
	opts = append(opts, search.WithCacheTTL(cfg.CacheTTL))
	if redisClient != nil {
		opts = append(opts, search.WithRedisCache(search.NewRedisCacheBackend(redisClient)))
	}
	return opts
}

func buildTMDBClient(cfg app.Config, redisClient *redis.Client, logger *slog.Logger) *tmdb.Client {
	if cfg.TMDBAPIKey == "" {
		logger.Warn("tmdb api key not configured, prompt search disabled")
	}
	client := tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		Client:    &http.Client{Timeout: cfg.CallTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:     redisClient,
		CacheTTL:  cfg.TMDBCacheTTL,
		RateLimit: cfg.TMDBRateLimit,
	})
	logger.Info("tmdb client initialized", slog.Bool("enabled", client.Enabled()))
	return client
}

func buildGeminiClient(ctx context.Context, cfg app.Config, logger *slog.Logger) *gemini.Client {
	if cfg.GeminiAPIKey == "" {
		logger.Info("gemini api key not configured, completions disabled")
		return nil
	}
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Models: cfg.GeminiModels,
	})
	if err != nil {
		logger.Warn("gemini client unavailable, completions disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("gemini client initialized", slog.Any("models", client.Models()))
	return client
}
