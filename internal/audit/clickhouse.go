package audit

import (
	"context"
	"fmt"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// ClickHouseLog records tool invocations in ClickHouse for usage analytics.
// It stores call metadata only; no transaction rows ever reach this table.
type ClickHouseLog struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// Config holds ClickHouse connection settings for the invocation log.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// NewClickHouseLog connects to ClickHouse and verifies the connection.
func NewClickHouseLog(ctx context.Context, cfg Config) (*ClickHouseLog, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected invocation log to ClickHouse")

	return &ClickHouseLog{conn: conn, logger: cfg.Logger}, nil
}

// Record inserts one invocation row.
func (l *ClickHouseLog) Record(ctx context.Context, rec *storage.InvocationRecord) error {
	query := `
		INSERT INTO tool_invocations (
			tool, wallet, duration_ms, succeeded, error, called_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := l.conn.Exec(ctx, query,
		rec.Tool,
		rec.Wallet,
		rec.Duration.Milliseconds(),
		rec.Succeeded,
		rec.ErrText,
		rec.At,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invocation: %w", err)
	}
	return nil
}

// Ping checks the ClickHouse connection.
func (l *ClickHouseLog) Ping(ctx context.Context) error {
	return l.conn.Ping(ctx)
}

// Close closes the connection.
func (l *ClickHouseLog) Close() error {
	return l.conn.Close()
}
