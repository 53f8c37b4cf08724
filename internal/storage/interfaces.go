package storage

import (
	"context"
	"io"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
)

// AnalysisCache is the read-through cache in front of the analytics
// provider, plus the live distribution channel for completed analyses.
// Implementations must be safe for concurrent tool invocations.
type AnalysisCache interface {
	// GetTransactions returns the cached transaction set for a wallet, or
	// the implementing package's not-cached sentinel when absent or expired.
	GetTransactions(ctx context.Context, wallet string) ([]models.TransactionRecord, error)

	// PutTransactions caches a wallet's transaction set with the cache TTL.
	PutTransactions(ctx context.Context, wallet string, txs []models.TransactionRecord) error

	// RecentAnalyses returns the most recent analysis events, newest first.
	RecentAnalyses(ctx context.Context, limit int64) ([]*models.AnalysisEvent, error)

	// PublishAnalysis records an analysis event and publishes it to live
	// subscribers.
	PublishAnalysis(ctx context.Context, event *models.AnalysisEvent) error

	// SubscribeAnalyses subscribes to live analysis events.
	SubscribeAnalyses(ctx context.Context) (<-chan *models.AnalysisEvent, error)

	// Ping checks that the cache backend is reachable.
	Ping(ctx context.Context) error

	io.Closer
}

// InvocationRecord is one audited tool call. Only call metadata is stored;
// transaction histories are never persisted.
type InvocationRecord struct {
	Tool      string
	Wallet    string
	Duration  time.Duration
	Succeeded bool
	ErrText   string
	At        time.Time
}

// InvocationLog records tool invocations for usage auditing.
type InvocationLog interface {
	Record(ctx context.Context, rec *InvocationRecord) error

	Ping(ctx context.Context) error

	io.Closer
}
