package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/use-agent/blockcrawl/api"
	"github.com/use-agent/blockcrawl/cache"
	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/metrics"
	"github.com/use-agent/blockcrawl/pipeline"
	"github.com/use-agent/blockcrawl/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("blockcrawl starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxAttempts", cfg.Requester.MaxAttempts,
		"proxy", fmt.Sprintf("%s:%d", cfg.Requester.ProxyHost, cfg.Requester.ProxyPort),
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled without API keys, extract endpoint is open")
	}

	// ── 3. Metrics and extraction pipeline ──────────────────────────
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	runner := pipeline.NewRunner(cfg.Requester, m)

	// ── 4. Cache and webhook delivery ───────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Close()
	sender := webhook.NewSender()

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(api.Services{
		Runner:   runner,
		Cache:    cc,
		Sender:   sender,
		Gatherer: reg,
	}, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("blockcrawl stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
