package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MikeSquared-Agency/haven/internal/analysis"
	"github.com/MikeSquared-Agency/haven/internal/api"
	"github.com/MikeSquared-Agency/haven/internal/auth"
	"github.com/MikeSquared-Agency/haven/internal/cache"
	"github.com/MikeSquared-Agency/haven/internal/config"
	"github.com/MikeSquared-Agency/haven/internal/extractor"
	"github.com/MikeSquared-Agency/haven/internal/feedback"
	"github.com/MikeSquared-Agency/haven/internal/hermes"
	"github.com/MikeSquared-Agency/haven/internal/llm"
	"github.com/MikeSquared-Agency/haven/internal/metrics"
	"github.com/MikeSquared-Agency/haven/internal/progress"
	"github.com/MikeSquared-Agency/haven/internal/slack"
	"github.com/MikeSquared-Agency/haven/internal/store"
	"github.com/MikeSquared-Agency/haven/internal/toughtongue"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, cfg.LogFile)

	slog.Info("haven starting", "port", cfg.Port)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Cache (optional; scenario listings and rate limits fall back to no-ops)
	var kv cache.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, running without cache", "error", err)
		} else {
			defer rdb.Close()
			kv = rdb
			slog.Info("redis connected")
		}
	}

	// Model client
	completer, err := llm.New(llm.Options{
		Provider:      cfg.LLMProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		slog.Error("failed to create model client", "error", err)
		os.Exit(1)
	}
	slog.Info("model client ready", "provider", cfg.LLMProvider)

	ext := extractor.New(completer, slog.Default())
	m := metrics.New()

	// Recording service
	tt := toughtongue.NewClient(cfg.ToughTongueToken, cfg.ToughTongueBaseURL, cfg.ToughTongueScenarioID,
		kv, cfg.ScenarioCacheTTL, slog.Default())

	// NATS/Hermes (optional; events and unlock requests are skipped without it)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("NATS unavailable, running without events", "error", err)
			hermesClient = nil
		} else {
			defer hermesClient.Close()
			slog.Info("NATS connected", "url", cfg.NatsURL)
		}
	}

	// Slack poster (optional; feedback is stored either way)
	var notifier feedback.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackFeedbackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackFeedbackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackFeedbackChannel)
	} else {
		slog.Warn("slack not configured, feedback will not be posted")
	}
	triage := feedback.NewTriage(db, notifier, slog.Default())

	// Pipeline and read models. Optional collaborators are passed as nil
	// interfaces, never as nil pointers.
	var (
		events   analysis.Publisher
		unlocker progress.Unlocker
	)
	if hermesClient != nil {
		events = hermesClient
		unlocker = hermesClient
	}
	proc := analysis.New(ext, db, tt, events, m, slog.Default())
	agg := progress.NewAggregator(db, unlocker, slog.Default())
	agg.DedupeUnlocks(kv)

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectSessionCompleted, proc.HandleSessionCompleted); err != nil {
			slog.Error("failed to subscribe to completed sessions", "error", err)
			os.Exit(1)
		}
		if notifier != nil {
			if err := hermesClient.Subscribe(cfg.SlackReactionSubject, triage.HandleReaction); err != nil {
				slog.Error("failed to subscribe to slack reactions", "error", err)
				os.Exit(1)
			}
		}
	}

	// HTTP API
	deps := api.Deps{
		Store:    db,
		Analyzer: proc,
		Source:   tt,
		Progress: agg,
		Feedback: triage,
		Limiter:  cache.NewRateLimiter(kv, "haven:analyze", cfg.AnalyzeRateLimit, time.Hour),
		Verifier: auth.NewVerifier(cfg.JWTSecret),
		Metrics:  m,
		Logger:   slog.Default(),
	}
	if hermesClient != nil {
		deps.Events = hermesClient
		deps.Bus = hermesClient
	}
	srv := api.NewServer(api.Options{
		Port:               cfg.Port,
		CORSOrigins:        cfg.CORSOrigins,
		AnalyzeRequireAuth: cfg.AnalyzeRequireAuth,
	}, deps)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("haven ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("haven stopped")
}

// setupLogging writes JSON logs to stdout, and also to a rotated file when
// file is set.
func setupLogging(level, file string) {
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

	var out io.Writer = os.Stdout
	if file != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
