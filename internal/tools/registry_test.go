package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/advisor"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/cache"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/queryclient"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/storage"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1234567890abcdef1234567890abcdef12345678"

// fakeProvider serves a fixed transaction set and counts how often it is hit.
type fakeProvider struct {
	rows    []models.TransactionRecord
	submits int
}

func (f *fakeProvider) Submit(ctx context.Context, wallet string) (string, error) {
	f.submits++
	return "job-1", nil
}

func (f *fakeProvider) Status(ctx context.Context, jobID string) (*queryclient.JobStatus, error) {
	return &queryclient.JobStatus{State: queryclient.ProviderCompleted, Rows: f.rows}, nil
}

// memoryCache is an in-process AnalysisCache for exercising the read-through
// path without Redis.
type memoryCache struct {
	mu     sync.Mutex
	txs    map[string][]models.TransactionRecord
	events []*models.AnalysisEvent
}

func newMemoryCache() *memoryCache {
	return &memoryCache{txs: make(map[string][]models.TransactionRecord)}
}

func (m *memoryCache) GetTransactions(ctx context.Context, wallet string) ([]models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs, ok := m.txs[wallet]
	if !ok {
		return nil, cache.ErrNotCached
	}
	return txs, nil
}

func (m *memoryCache) PutTransactions(ctx context.Context, wallet string, txs []models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[wallet] = txs
	return nil
}

func (m *memoryCache) RecentAnalyses(ctx context.Context, limit int64) ([]*models.AnalysisEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, nil
}

func (m *memoryCache) PublishAnalysis(ctx context.Context, event *models.AnalysisEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memoryCache) SubscribeAnalyses(ctx context.Context) (<-chan *models.AnalysisEvent, error) {
	ch := make(chan *models.AnalysisEvent)
	close(ch)
	return ch, nil
}

func (m *memoryCache) Ping(ctx context.Context) error { return nil }
func (m *memoryCache) Close() error                   { return nil }

// memoryLog records invocation audit rows in memory.
type memoryLog struct {
	mu   sync.Mutex
	recs []*storage.InvocationRecord
}

func (m *memoryLog) Record(ctx context.Context, rec *storage.InvocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memoryLog) Ping(ctx context.Context) error { return nil }
func (m *memoryLog) Close() error                   { return nil }

func sampleTxs(n int) []models.TransactionRecord {
	ref := time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)
	out := make([]models.TransactionRecord, n)
	for i := range out {
		out[i] = models.TransactionRecord{
			BlockTime:    ref.Add(-time.Duration(i) * time.Hour),
			Hash:         fmt.Sprintf("0x%040x", i),
			To:           "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			EthAmount:    1,
			GasUsed:      21000,
			GasPriceGwei: 25,
			TotalFeeEth:  0.0005,
			Success:      true,
			Direction:    models.DirectionOutgoing,
		}
	}
	return out
}

type testEnv struct {
	registry *Registry
	provider *fakeProvider
	cache    *memoryCache
	audit    *memoryLog
}

func setupRegistry(t *testing.T, rows []models.TransactionRecord, quoteHandler http.HandlerFunc) *testEnv {
	provider := &fakeProvider{rows: rows}
	query := queryclient.NewClient(provider, queryclient.Config{
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	})

	swap := oneinch.NewClient("http://127.0.0.1:0", "")
	if quoteHandler != nil {
		srv := httptest.NewServer(quoteHandler)
		t.Cleanup(srv.Close)
		swap = oneinch.NewClient(srv.URL, "")
	}

	env := &testEnv{
		provider: provider,
		cache:    newMemoryCache(),
		audit:    &memoryLog{},
	}
	env.registry = NewRegistry(Deps{
		Query:    query,
		Resolver: tokens.NewResolver(tokens.DefaultRegistry()),
		Swap:     swap,
		Advisor:  advisor.New(advisor.DefaultThresholds(), nil),
		Cache:    env.cache,
		Audit:    env.audit,
	})
	return env
}

func input(t *testing.T, v any) json.RawMessage {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestList(t *testing.T) {
	env := setupRegistry(t, nil, nil)

	infos := env.registry.List()
	require.Len(t, infos, 4)
	assert.Equal(t, ToolAnalyzeWallet, infos[0].Name)
	assert.Equal(t, ToolRecentTransactions, infos[1].Name)
	assert.Equal(t, ToolSmartSwapAnalyzer, infos[2].Name)
	assert.Equal(t, ToolGasOptimization, infos[3].Name)
}

func TestExecute_UnknownTool(t *testing.T) {
	env := setupRegistry(t, nil, nil)

	res := env.registry.Execute(context.Background(), "mysteryTool", json.RawMessage(`{}`))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "unknown tool")
}

func TestExecute_InvalidAddressSkipsProvider(t *testing.T) {
	env := setupRegistry(t, sampleTxs(3), nil)

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": "not-an-address"}))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "Error: invalid wallet address")
	assert.Equal(t, 0, env.provider.submits) // validation happens before any network call
}

func TestExecute_AddressPrefixRequired(t *testing.T) {
	env := setupRegistry(t, sampleTxs(3), nil)

	// 40 hex characters without the 0x prefix, and with an uppercase 0X
	// prefix: both fail the shape check before any network call.
	for _, addr := range []string{
		"1234567890abcdef1234567890abcdef12345678",
		"0X1234567890abcdef1234567890abcdef12345678",
	} {
		res := env.registry.Execute(context.Background(), ToolAnalyzeWallet,
			input(t, map[string]string{"wallet_address": addr}))

		assert.True(t, res.IsError, "address %q must be rejected", addr)
		assert.Contains(t, res.Text, "Error: invalid wallet address")
	}
	assert.Equal(t, 0, env.provider.submits)
}

func TestExecute_ErrorsAreResultsNotPanics(t *testing.T) {
	env := setupRegistry(t, nil, nil)

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet, json.RawMessage(`{not json`))
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Text, "Error: "))
}

func TestAnalyzeWallet_Summary(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": testWallet}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Wallet "+testWallet)
	assert.Contains(t, res.Text, "Transactions: 5 (5 successful, 100.0% success rate)")
}

func TestAnalyzeWallet_DetailedFormat(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": testWallet, "format": "detailed"}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Temporal pattern")
	assert.Contains(t, res.Text, "Recent transactions")
}

func TestAnalyzeWallet_UnknownFormat(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": testWallet, "format": "xml"}))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "unknown format")
}

func TestAnalyzeWallet_EmptyHistory(t *testing.T) {
	env := setupRegistry(t, nil, nil)

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": testWallet}))

	// No transactions is a message, not an error.
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, fmt.Sprintf("No transactions found for wallet %s.", testWallet), res.Text)
}

func TestRecentTransactions_DefaultLimit(t *testing.T) {
	env := setupRegistry(t, sampleTxs(30), nil)

	res := env.registry.Execute(context.Background(), ToolRecentTransactions,
		input(t, map[string]string{"wallet_address": testWallet}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, fmt.Sprintf("Last 10 transactions for %s", testWallet))
	assert.Equal(t, 11, strings.Count(res.Text, "\n")) // header plus ten lines
}

func TestRecentTransactions_LimitClamped(t *testing.T) {
	env := setupRegistry(t, sampleTxs(60), nil)

	res := env.registry.Execute(context.Background(), ToolRecentTransactions,
		input(t, map[string]any{"wallet_address": testWallet, "limit": 500}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Last 50 transactions")
}

func TestRecentTransactions_LimitAboveHistory(t *testing.T) {
	env := setupRegistry(t, sampleTxs(3), nil)

	res := env.registry.Execute(context.Background(), ToolRecentTransactions,
		input(t, map[string]any{"wallet_address": testWallet, "limit": 20}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Last 3 transactions")
}

func TestSmartSwapAnalyzer(t *testing.T) {
	env := setupRegistry(t, sampleTxs(10), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000000000000000000", r.URL.Query().Get("amount"))
		_, _ = w.Write([]byte(`{"dstAmount":"2500000000","gas":180000,"protocols":[[[{"name":"UNISWAP_V3","part":100}]]]}`))
	})

	res := env.registry.Execute(context.Background(), ToolSmartSwapAnalyzer,
		input(t, map[string]string{
			"wallet_address": testWallet,
			"from_token":     "ETH",
			"to_token":       "USDT",
			"amount":         "1",
		}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Swap analysis: 1 ETH -> USDT")
	assert.Contains(t, res.Text, "Estimated output: 2500 USDT")
	assert.Contains(t, res.Text, "Route: UNISWAP_V3")
	assert.Contains(t, res.Text, "100.0% success rate")
}

func TestSmartSwapAnalyzer_UnknownToken(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	res := env.registry.Execute(context.Background(), ToolSmartSwapAnalyzer,
		input(t, map[string]string{
			"wallet_address": testWallet,
			"from_token":     "DOGE",
			"to_token":       "USDT",
			"amount":         "1",
		}))

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, `unknown token "DOGE"`)
	assert.Contains(t, res.Text, "supported symbols")
	assert.Equal(t, 0, env.provider.submits) // token resolution happens before the query
}

func TestSmartSwapAnalyzer_QuoteFailure(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res := env.registry.Execute(context.Background(), ToolSmartSwapAnalyzer,
		input(t, map[string]string{
			"wallet_address": testWallet,
			"from_token":     "ETH",
			"to_token":       "USDT",
			"amount":         "1",
		}))

	// A failed quote fails the whole swap analysis.
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "swap quote failed")
}

func TestGasOptimization_HistoryOnly(t *testing.T) {
	env := setupRegistry(t, sampleTxs(10), nil)

	res := env.registry.Execute(context.Background(), ToolGasOptimization,
		input(t, map[string]string{"wallet_address": testWallet}))

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Gas optimization for "+testWallet)
	assert.Contains(t, res.Text, "25.0 Gwei average")
	assert.Contains(t, res.Text, "at 15 Gwei")
	assert.Contains(t, res.Text, "at 10 Gwei")
	assert.NotContains(t, res.Text, "Note:")
}

func TestGasOptimization_DegradesOnQuoteFailure(t *testing.T) {
	env := setupRegistry(t, sampleTxs(10), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res := env.registry.Execute(context.Background(), ToolGasOptimization,
		input(t, map[string]string{
			"wallet_address": testWallet,
			"from_token":     "ETH",
			"to_token":       "USDT",
			"amount":         "1",
		}))

	// Unlike smartSwapAnalyzer, the history analysis still succeeds and the
	// quote failure is downgraded to a note.
	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, "Gas optimization for "+testWallet)
	assert.Contains(t, res.Text, "Note: swap enrichment unavailable")
}

func TestFetchTransactions_ReadThroughCache(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)
	in := input(t, map[string]string{"wallet_address": testWallet})

	res := env.registry.Execute(context.Background(), ToolAnalyzeWallet, in)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, 1, env.provider.submits)

	// Second call is served from the cache, the provider is not hit again.
	res = env.registry.Execute(context.Background(), ToolAnalyzeWallet, in)
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, 1, env.provider.submits)
}

func TestExecute_AuditsInvocations(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": testWallet}))
	env.registry.Execute(context.Background(), ToolRecentTransactions,
		input(t, map[string]string{"wallet_address": "nope"}))

	require.Len(t, env.audit.recs, 2)

	assert.Equal(t, ToolAnalyzeWallet, env.audit.recs[0].Tool)
	assert.Equal(t, testWallet, env.audit.recs[0].Wallet)
	assert.True(t, env.audit.recs[0].Succeeded)
	assert.Empty(t, env.audit.recs[0].ErrText)

	assert.Equal(t, ToolRecentTransactions, env.audit.recs[1].Tool)
	assert.False(t, env.audit.recs[1].Succeeded)
	assert.NotEmpty(t, env.audit.recs[1].ErrText)
}

func TestExecute_PublishesAnalyses(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	env.registry.Execute(context.Background(), ToolAnalyzeWallet,
		input(t, map[string]string{"wallet_address": testWallet}))

	require.Len(t, env.cache.events, 1)
	assert.Equal(t, ToolAnalyzeWallet, env.cache.events[0].Tool)
	assert.Equal(t, testWallet, env.cache.events[0].Wallet)
	assert.Equal(t, 5, env.cache.events[0].TransactionCount)
}

func TestReport(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	rep, err := env.registry.Report(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, testWallet, rep.Wallet)
	assert.Equal(t, 5, rep.Summary.TotalTransactions)
	assert.NotNil(t, rep.Gas)
	assert.NotNil(t, rep.Pattern)
	assert.Len(t, rep.Recent, 5)
}

func TestReport_InvalidAddress(t *testing.T) {
	env := setupRegistry(t, sampleTxs(5), nil)

	_, err := env.registry.Report(context.Background(), "bogus")
	require.Error(t, err)

	var addrErr *InvalidAddressError
	assert.ErrorAs(t, err, &addrErr)
}
