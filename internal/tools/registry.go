package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/advisor"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/cache"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/queryclient"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/storage"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tokens"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Tool names as exposed on the dispatch surface.
const (
	ToolAnalyzeWallet      = "analyzeWallet"
	ToolRecentTransactions = "recentTransactions"
	ToolSmartSwapAnalyzer  = "smartSwapAnalyzer"
	ToolGasOptimization    = "gasOptimizationAssistant"
)

// Result is what every tool call returns across the dispatch boundary:
// a text payload, flagged as an error instead of raised. A call either
// fully succeeds or reports exactly one error, never partial results.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// Info describes one registered tool for discovery.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Handler executes one tool against raw JSON input.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Deps are the collaborators the tools operate on. Cache and Audit are
// optional; nil disables them without changing tool behavior.
type Deps struct {
	Query    *queryclient.Client
	Resolver *tokens.Resolver
	Swap     *oneinch.Client
	Advisor  *advisor.Advisor
	Cache    storage.AnalysisCache
	Audit    storage.InvocationLog
	Logger   *logrus.Logger
}

// Registry holds the four wallet-analytics tools and dispatches calls to
// them. Each invocation is independent; the registry itself is read-only
// after construction.
type Registry struct {
	deps     Deps
	handlers map[string]Handler
	infos    []Info
}

// NewRegistry builds the registry with all tools registered.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	r := &Registry{deps: deps, handlers: make(map[string]Handler)}

	r.register(ToolAnalyzeWallet,
		"Analyze a wallet's transaction history: volumes, gas usage, success rate and temporal patterns. Formats: summary, detailed, raw.",
		r.analyzeWallet)
	r.register(ToolRecentTransactions,
		"List a wallet's most recent transactions (limit up to 50, default 10).",
		r.recentTransactions)
	r.register(ToolSmartSwapAnalyzer,
		"Combine a live 1inch quote with the wallet's historical gas and success statistics into a swap recommendation.",
		r.smartSwapAnalyzer)
	r.register(ToolGasOptimization,
		"Estimate potential gas savings against the wallet's historical average, optionally enriched with a swap quote.",
		r.gasOptimization)

	return r
}

func (r *Registry) register(name, description string, h Handler) {
	r.handlers[name] = h
	r.infos = append(r.infos, Info{Name: name, Description: description})
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Info {
	out := make([]Info, len(r.infos))
	copy(out, r.infos)
	return out
}

// Execute dispatches a call to the named tool. Every error (unknown tool,
// bad input, upstream failure) comes back as an error-flagged Result, never
// as a Go error, so nothing raises across the dispatch boundary.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) Result {
	handler, ok := r.handlers[name]
	if !ok {
		return Result{Text: "unknown tool: " + name, IsError: true}
	}

	start := time.Now()
	text, err := handler(ctx, input)

	rec := &storage.InvocationRecord{
		Tool:      name,
		Wallet:    walletFromInput(input),
		Duration:  time.Since(start),
		Succeeded: err == nil,
		At:        start.UTC(),
	}
	if err != nil {
		rec.ErrText = err.Error()
	}
	r.audit(ctx, rec)

	if err != nil {
		r.deps.Logger.WithError(err).WithField("tool", name).Warn("tool call failed")
		return Result{Text: "Error: " + err.Error(), IsError: true}
	}
	return Result{Text: text}
}

// audit records the invocation when an audit log is configured. Audit
// failures are logged and swallowed; they never affect the call.
func (r *Registry) audit(ctx context.Context, rec *storage.InvocationRecord) {
	if r.deps.Audit == nil {
		return
	}
	if err := r.deps.Audit.Record(ctx, rec); err != nil {
		r.deps.Logger.WithError(err).Warn("failed to record invocation")
	}
}

// publish fans out a completed analysis. Best-effort: cache loss never
// fails a tool call.
func (r *Registry) publish(ctx context.Context, tool, wallet string, txCount int) {
	if r.deps.Cache == nil {
		return
	}
	event := &models.AnalysisEvent{
		Tool:             tool,
		Wallet:           wallet,
		TransactionCount: txCount,
		Timestamp:        time.Now().UTC(),
	}
	if err := r.deps.Cache.PublishAnalysis(ctx, event); err != nil {
		r.deps.Logger.WithError(err).Warn("failed to publish analysis event")
	}
}

// validateAddress enforces the 0x + 40-hex shape before anything touches
// the network. The lowercase 0x prefix is required explicitly:
// common.IsHexAddress alone also accepts bare hex and an 0X prefix.
func validateAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return &InvalidAddressError{Address: addr}
	}
	return nil
}

// fetchTransactions is the read-through path: cache hit if Redis has a live
// entry, otherwise the full submit-and-poll query, with the result cached
// best-effort for follow-up calls on the same wallet.
func (r *Registry) fetchTransactions(ctx context.Context, wallet string) ([]models.TransactionRecord, error) {
	if r.deps.Cache != nil {
		txs, err := r.deps.Cache.GetTransactions(ctx, wallet)
		if err == nil {
			r.deps.Logger.WithField("wallet", wallet).Debug("transaction cache hit")
			return txs, nil
		}
		if !errors.Is(err, cache.ErrNotCached) {
			r.deps.Logger.WithError(err).Warn("transaction cache read failed")
		}
	}

	txs, err := r.deps.Query.Execute(ctx, wallet)
	if err != nil {
		return nil, err
	}

	if r.deps.Cache != nil {
		if err := r.deps.Cache.PutTransactions(ctx, wallet, txs); err != nil {
			r.deps.Logger.WithError(err).Warn("transaction cache write failed")
		}
	}
	return txs, nil
}

// walletFromInput extracts the wallet field for audit rows without
// re-running handler validation.
func walletFromInput(input json.RawMessage) string {
	var probe struct {
		WalletAddress string `json:"wallet_address"`
	}
	_ = json.Unmarshal(input, &probe)
	return probe.WalletAddress
}
