package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/advisor"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/ai"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/audit"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/cache"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/config"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/dune"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/queryclient"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/server"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/storage"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tokens"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tools"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Dune analytics provider behind the submit-and-poll client
	provider := dune.NewClient(dune.ClientConfig{
		BaseURL: cfg.DuneBaseURL,
		APIKey:  cfg.DuneAPIKey,
		QueryID: cfg.DuneQueryID,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	query := queryclient.NewClient(provider, queryclient.Config{
		PollInterval: cfg.QueryPollInterval,
		MaxAttempts:  cfg.QueryMaxAttempts,
		Logger:       logger,
	})

	// Redis-backed analysis cache (optional)
	var analysisCache storage.AnalysisCache
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0, // Use default database for main application
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		rc, err := cache.NewRedisCache(rclient, cfg.CacheTTL, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to create redis cache")
		}
		analysisCache = rc
		logger.WithField("addr", cfg.RedisAddr).Info("redis cache enabled")
	} else {
		logger.Info("REDIS_ADDR not set, caching disabled")
	}

	// ClickHouse invocation log (optional)
	var invocationLog storage.InvocationLog
	if cfg.ClickHouseAddr != "" {
		chlog, err := audit.NewClickHouseLog(ctx, audit.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to connect to ClickHouse, auditing disabled")
		} else {
			invocationLog = chlog
			defer func() {
				_ = chlog.Close()
			}()
		}
	}

	// Tool registry with all collaborators injected
	registry := tools.NewRegistry(tools.Deps{
		Query:    query,
		Resolver: tokens.NewResolver(tokens.DefaultRegistry()),
		Swap:     oneinch.NewClient(cfg.OneInchBaseURL, cfg.OneInchAPIKey),
		Advisor:  advisor.New(advisor.DefaultThresholds(), logger),
		Cache:    analysisCache,
		Audit:    invocationLog,
		Logger:   logger,
	})

	// Initialize AI agent for natural language questions (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
		Model:            "openai/gpt-4.1-mini", // Default model for report summarisation
		Logger:           logger,
	}

	// Only initialize AI if OpenRouter API key is provided
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(registry, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Registry:     registry,
		Cache:        analysisCache,
		AI:           agent,
		AIBaseConfig: aiBase,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
