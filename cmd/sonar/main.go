package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baisoku/sonar/internal/api"
	"github.com/baisoku/sonar/internal/config"
	"github.com/baisoku/sonar/internal/genlock"
	"github.com/baisoku/sonar/internal/hermes"
	"github.com/baisoku/sonar/internal/llm"
	"github.com/baisoku/sonar/internal/metrics"
	"github.com/baisoku/sonar/internal/processor"
	"github.com/baisoku/sonar/internal/slack"
	"github.com/baisoku/sonar/internal/store"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("sonar starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var st survey.Store
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		st = db
		slog.Info("database connected")
	} else {
		st = store.NewMemory(24 * time.Hour)
		slog.Warn("DATABASE_URL not set, sessions are kept in memory")
	}

	// Generation lock
	var lock survey.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		lock = genlock.NewRedis(rdb, cfg.GenerationLockTTL)
		slog.Info("redis connected")
	} else {
		lock = genlock.NewMemory(cfg.GenerationLockTTL)
	}

	// Model provider
	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up model provider", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}
	defer closeGen()

	// NATS/Hermes, or an in-process bus when no server is configured
	var bus hermes.Bus
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		bus = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		bus = hermes.NewLocal(slog.Default())
	}
	defer bus.Close()

	m := metrics.NewSurveyMetrics(prometheus.DefaultRegisterer)

	engine := survey.NewEngine(st, gen, bus, lock, m, slog.Default(), survey.Options{
		MaxAttempts:         cfg.GenerationMaxAttempts,
		DefaultReportTarget: cfg.DefaultReportTarget,
	})

	// Slack notices (optional, reports are still stored without it)
	var notifier processor.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, running without report notices")
	}

	// Batch analyses and report notices run off the bus
	proc := processor.New(engine, notifier, cfg.SiteURL, slog.Default())
	if err := proc.Subscribe(bus); err != nil {
		slog.Error("failed to subscribe to batch events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, engine, api.Options{
		APIToken:    cfg.APIToken,
		GuestSecret: cfg.GuestJWTSecret,
		Gatherer:    prometheus.DefaultGatherer,
		Logger:      slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("sonar ready", "port", cfg.Port, "provider", cfg.LLMProvider)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	cancel()
	slog.Info("sonar stopped")
}

func newGenerator(ctx context.Context, cfg config.Config) (llm.Generator, func(), error) {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, errors.New("GEMINI_API_KEY is required")
		}
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		c.SetTemperature(cfg.LLMTemperature)
		slog.Info("gemini client ready", "model", cfg.GeminiModel)
		return c, func() { c.Close() }, nil
	default:
		if cfg.OpenRouterAPIKey == "" {
			return nil, nil, errors.New("OPENROUTER_API_KEY is required")
		}
		c := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.SiteURL)
		c.SetBaseURL(cfg.OpenRouterBaseURL)
		c.SetTemperature(cfg.LLMTemperature)
		slog.Info("openrouter client ready", "model", cfg.OpenRouterModel)
		return c, func() {}, nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
