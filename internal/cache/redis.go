package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	txKeyPrefix     = "wallet:txs:"
	recentKey       = "analyses:recent"
	liveChannel     = "analyses:live"
	maxRecentEvents = 100
)

// ErrNotCached is returned when a wallet has no live cache entry.
var ErrNotCached = errors.New("wallet not cached")

// RedisCache caches fetched transaction sets per wallet with a short TTL
// and fans completed analyses out over pub/sub. All methods are safe for
// concurrent tool invocations; losing Redis degrades tools to uncached
// operation, it never fails them.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisCache creates a cache over an existing Redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func txKey(wallet string) string {
	return txKeyPrefix + strings.ToLower(wallet)
}

// GetTransactions returns the cached set for a wallet, or ErrNotCached.
func (c *RedisCache) GetTransactions(ctx context.Context, wallet string) ([]models.TransactionRecord, error) {
	val, err := c.client.Get(ctx, txKey(wallet)).Result()
	if err == redis.Nil {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("get cached transactions: %w", err)
	}

	var txs []models.TransactionRecord
	if err := json.Unmarshal([]byte(val), &txs); err != nil {
		return nil, fmt.Errorf("unmarshal cached transactions: %w", err)
	}
	return txs, nil
}

// PutTransactions stores a wallet's transaction set for the cache TTL.
func (c *RedisCache) PutTransactions(ctx context.Context, wallet string, txs []models.TransactionRecord) error {
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	if err := c.client.Set(ctx, txKey(wallet), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache transactions: %w", err)
	}
	return nil
}

// PublishAnalysis appends the event to the capped recent list and publishes
// it on the live channel.
func (c *RedisCache) PublishAnalysis(ctx context.Context, event *models.AnalysisEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analysis event: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, recentKey, data)
	pipe.LTrim(ctx, recentKey, 0, maxRecentEvents-1)
	pipe.Publish(ctx, liveChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish analysis: %w", err)
	}
	return nil
}

// RecentAnalyses returns up to limit recent analysis events, newest first.
func (c *RedisCache) RecentAnalyses(ctx context.Context, limit int64) ([]*models.AnalysisEvent, error) {
	if limit <= 0 || limit > maxRecentEvents {
		limit = maxRecentEvents
	}
	vals, err := c.client.LRange(ctx, recentKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent analyses: %w", err)
	}

	out := make([]*models.AnalysisEvent, 0, len(vals))
	for _, v := range vals {
		var ev models.AnalysisEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}

// SubscribeAnalyses streams live analysis events until ctx is cancelled.
func (c *RedisCache) SubscribeAnalyses(ctx context.Context) (<-chan *models.AnalysisEvent, error) {
	pubsub := c.client.Subscribe(ctx, liveChannel)

	// Confirm the subscription before handing back the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe analyses: %w", err)
	}

	out := make(chan *models.AnalysisEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.AnalysisEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.logger.WithError(err).Warn("dropping malformed analysis event")
					continue
				}
				select {
				case out <- &ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
