package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/cache"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// watch tails the live analysis feed: every completed tool call published by
// the API server is printed as it happens.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required for the watcher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down watcher")
		cancel()
	}()

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: 0})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	analysisCache, err := cache.NewRedisCache(rclient, cfg.CacheTTL, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create redis cache")
	}

	events, err := analysisCache.SubscribeAnalyses(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to analysis feed")
	}

	logger.Info("watching live analyses, press Ctrl+C to stop")
	for ev := range events {
		logger.WithFields(logrus.Fields{
			"tool":         ev.Tool,
			"wallet":       ev.Wallet,
			"transactions": ev.TransactionCount,
		}).Info("analysis completed")
	}
}
