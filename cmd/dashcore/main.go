package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/adpulse/dashcore/internal/core/config"
	"github.com/adpulse/dashcore/internal/debugsrv"
	"github.com/adpulse/dashcore/internal/infra/api"
	"github.com/adpulse/dashcore/internal/infra/stream"
	"github.com/adpulse/dashcore/internal/session"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	ownerID := flag.String("owner", "", "Owner id for the session (falls back to DASHCORE_OWNER_ID)")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load Configuration first (before setting up logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	slog.Info("Logger initialized", "level", slogLevel.String())

	owner := *ownerID
	if owner == "" {
		owner = os.Getenv("DASHCORE_OWNER_ID")
	}
	if owner == "" {
		slog.Error("Owner id is not set")
		os.Exit(1)
	}

	source, cleanup, err := buildSource(cfg.Stream)
	if err != nil {
		slog.Error("Failed to initialize event source", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// The daemon reads the bearer token from the environment on every
	// attempt; an embedding application supplies its auth manager here.
	tokens := api.TokenProviderFunc(func(ctx context.Context) (string, error) {
		token := os.Getenv("DASHCORE_ID_TOKEN")
		if token == "" {
			return "", fmt.Errorf("DASHCORE_ID_TOKEN is not set")
		}
		return token, nil
	})

	sess, err := session.New(session.Config{
		OwnerID: owner,
		API: api.Config{
			BaseURL:        cfg.API.BaseURL,
			Timeout:        cfg.API.Timeout,
			MaxRetries:     cfg.API.MaxRetries,
			RetryBaseDelay: cfg.API.RetryBaseDelay,
		},
		Tokens: tokens,
		Source: source,
	})
	if err != nil {
		slog.Error("Failed to initialize session", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		slog.Error("Failed to start session", "error", err)
		os.Exit(1)
	}

	srv := debugsrv.NewServer(sess, cfg.Server.Port)
	go func() {
		slog.Info("Debug server listening", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Debug server failed", "error", err)
		}
	}()

	// Handle OS Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Error stopping debug server", "error", err)
	}
	if err := sess.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Session stopped gracefully")
}

// buildSource constructs the configured push-channel implementation.
func buildSource(cfg config.StreamConfig) (stream.Source, func(), error) {
	switch cfg.Mode {
	case "redis":
		src, err := stream.NewRedisSource(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	case "sse":
		if cfg.SSEEndpoint == "" {
			return nil, nil, fmt.Errorf("stream mode sse requires sse_endpoint")
		}
		return stream.NewSSESource(cfg.SSEEndpoint), func() {}, nil
	case "memory":
		src := stream.NewMemorySource()
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown stream mode %q", cfg.Mode)
	}
}
