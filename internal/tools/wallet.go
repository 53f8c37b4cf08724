package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/report"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/stats"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

type analyzeWalletInput struct {
	WalletAddress string `json:"wallet_address"`
	Format        string `json:"format"`
}

func (r *Registry) analyzeWallet(ctx context.Context, input json.RawMessage) (string, error) {
	var params analyzeWalletInput
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAddress(params.WalletAddress); err != nil {
		return "", err
	}
	format, err := report.ParseFormat(params.Format)
	if err != nil {
		return "", err
	}

	txs, err := r.fetchTransactions(ctx, params.WalletAddress)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions found for wallet %s.", params.WalletAddress), nil
	}

	rep, err := buildReport(params.WalletAddress, txs)
	if err != nil {
		return "", err
	}

	text, err := report.Render(rep, format)
	if err != nil {
		return "", err
	}

	r.publish(ctx, ToolAnalyzeWallet, params.WalletAddress, len(txs))
	return text, nil
}

type recentTransactionsInput struct {
	WalletAddress string `json:"wallet_address"`
	Limit         int    `json:"limit"`
}

func (r *Registry) recentTransactions(ctx context.Context, input json.RawMessage) (string, error) {
	var params recentTransactionsInput
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAddress(params.WalletAddress); err != nil {
		return "", err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	txs, err := r.fetchTransactions(ctx, params.WalletAddress)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions found for wallet %s.", params.WalletAddress), nil
	}
	if limit > len(txs) {
		limit = len(txs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d transactions for %s\n", limit, params.WalletAddress)
	for _, tx := range txs[:limit] {
		b.WriteString(report.RenderTransaction(tx))
	}

	r.publish(ctx, ToolRecentTransactions, params.WalletAddress, len(txs))
	return b.String(), nil
}

// Report runs the full analysis pipeline and returns the structured report.
// It is the programmatic counterpart of analyzeWallet, used by the AI agent
// and anything else that wants the numbers rather than rendered text.
func (r *Registry) Report(ctx context.Context, wallet string) (*models.WalletReport, error) {
	if err := validateAddress(wallet); err != nil {
		return nil, err
	}
	txs, err := r.fetchTransactions(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, stats.ErrNoTransactions
	}
	return buildReport(wallet, txs)
}

// buildReport derives every statistic for a non-empty transaction set. The
// recent slice carries the newest records for the detailed/raw formats.
func buildReport(wallet string, txs []models.TransactionRecord) (*models.WalletReport, error) {
	summary, err := stats.Summarize(txs)
	if err != nil {
		return nil, err
	}
	gas, err := stats.ComputeGasStats(txs)
	if err != nil {
		return nil, err
	}
	pattern, err := stats.AnalyzePattern(txs)
	if err != nil {
		return nil, err
	}

	recent := txs
	if len(recent) > defaultRecentLimit {
		recent = recent[:defaultRecentLimit]
	}

	return &models.WalletReport{
		Wallet:      wallet,
		Summary:     summary,
		Gas:         gas,
		Pattern:     pattern,
		Recent:      recent,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
