// Heron - Insurance claim fraud scoring that deploys in 60 seconds.
// Copyright (c) 2026 ClearClaim
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clearclaim/heron/internal/api"
	"github.com/clearclaim/heron/internal/bus"
	"github.com/clearclaim/heron/internal/cache"
	"github.com/clearclaim/heron/internal/classifier"
	"github.com/clearclaim/heron/internal/detector"
	"github.com/clearclaim/heron/internal/domain"
	"github.com/clearclaim/heron/internal/narrative"
	"github.com/clearclaim/heron/internal/repository"
	"github.com/clearclaim/heron/internal/rules"
	"github.com/clearclaim/heron/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load .env if present; real environment wins
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("HERON_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("HERON_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	applyEnvOverrides(cfg)

	if cfg.Narrative.APIKey == "" {
		slog.Error("HERON_API_KEY is required for the reasoning endpoint")
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"model_path", cfg.Classifier.ModelPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize rule scorer with the fixed policy
	scorer, err := rules.NewScorer(rules.DefaultRules())
	if err != nil {
		slog.Error("failed to initialize rule scorer", "error", err)
		os.Exit(1)
	}
	slog.Info("rule scorer initialized", "rules_count", len(scorer.Rules()))

	// Load the pre-trained classifier artifact. A missing or malformed
	// artifact is fatal: scoring without the model would silently skew
	// every combined score.
	artifact, err := classifier.Load(cfg.Classifier.ModelPath)
	if err != nil {
		slog.Error("failed to load classifier model", "path", cfg.Classifier.ModelPath, "error", err)
		os.Exit(1)
	}
	predictor := classifier.NewAdapter(artifact)
	slog.Info("classifier initialized",
		"path", cfg.Classifier.ModelPath,
		"features", len(artifact.FeatureNames()),
	)

	// Initialize the reasoning analyzer
	analyzer, err := narrative.NewAnalyzer(cfg.Narrative)
	if err != nil {
		slog.Error("failed to initialize narrative analyzer", "error", err)
		os.Exit(1)
	}
	slog.Info("narrative analyzer initialized",
		"base_url", cfg.Narrative.BaseURL,
		"model", cfg.Narrative.Model,
	)

	// Assemble the detection pipeline
	det := detector.New(repo, cacheImpl, busImpl, scorer, predictor, analyzer)
	slog.Info("detector initialized")

	// Start the alert monitor
	monitor := worker.NewAlertMonitor(busImpl, cacheImpl)
	if err := monitor.Start(); err != nil {
		slog.Error("failed to start alert monitor", "error", err)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, det, scorer, repo, cacheImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := monitor.Stop(); err != nil {
		slog.Error("failed to stop alert monitor", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
}

// applyEnvOverrides layers environment settings over the tier defaults.
func applyEnvOverrides(cfg *domain.Config) {
	cfg.Narrative.APIKey = os.Getenv("HERON_API_KEY")

	if v := os.Getenv("HERON_MODEL_PATH"); v != "" {
		cfg.Classifier.ModelPath = v
	}
	if v := os.Getenv("HERON_NARRATIVE_URL"); v != "" {
		cfg.Narrative.BaseURL = v
	}
	if v := os.Getenv("HERON_NARRATIVE_MODEL"); v != "" {
		cfg.Narrative.Model = v
	}
	if v := os.Getenv("HERON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HERON_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}

	// Pro tier backing services
	if v := os.Getenv("HERON_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("HERON_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Repository.PostgresPort = port
		}
	}
	if v := os.Getenv("HERON_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("HERON_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("HERON_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("HERON_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("HERON_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("HERON_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("HERON_NATS_TOKEN"); v != "" {
		cfg.EventBus.NATSToken = v
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  HERON - Claim Fraud Scoring Engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST  /claims                          - Submit a claim for analysis")
	fmt.Println("    GET   /claims/{id}                     - Get claim by ID")
	fmt.Println("    GET   /claims/{id}/analysis            - Get stored analysis")
	fmt.Println("    PATCH /claims/{id}/status              - Update claim status")
	fmt.Println("    GET   /policies/{policyNumber}/claims  - Claim history for a policy")
	fmt.Println("    GET   /dashboard/summary               - High-risk dashboard summary")
	fmt.Println("    GET   /rules                           - List scoring rules")
	fmt.Println("    GET   /health                          - Health check")
	fmt.Println()
}
