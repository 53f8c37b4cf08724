package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/advisor"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/ai"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/cache"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/oneinch"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/queryclient"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/server"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tokens"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tools"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIAddr = ":8092"
	testAPIKey  = "test-api-key-integration"
	testWallet  = "0x1234567890abcdef1234567890abcdef12345678"
)

// stubProvider serves a canned transaction set so integration tests never
// touch the real analytics API.
type stubProvider struct {
	rows []models.TransactionRecord
}

func (s *stubProvider) Submit(ctx context.Context, wallet string) (string, error) {
	return "job-integration", nil
}

func (s *stubProvider) Status(ctx context.Context, jobID string) (*queryclient.JobStatus, error) {
	return &queryclient.JobStatus{State: queryclient.ProviderCompleted, Rows: s.rows}, nil
}

func stubTxs(n int) []models.TransactionRecord {
	ref := time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)
	out := make([]models.TransactionRecord, n)
	for i := range out {
		out[i] = models.TransactionRecord{
			BlockTime:    ref.Add(-time.Duration(i) * time.Hour),
			Hash:         fmt.Sprintf("0x%040x", i),
			To:           "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			EthAmount:    0.5,
			GasUsed:      21000,
			GasPriceGwei: 20,
			TotalFeeEth:  0.00042,
			Success:      true,
			Direction:    models.DirectionOutgoing,
		}
	}
	return out
}

func setupIntegrationTest(t *testing.T) (*server.Server, *redis.Client, func()) {
	// Check if Redis is available
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	// Clear test DB
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()
	analysisCache, err := cache.NewRedisCache(redisClient, 30*time.Second, logger)
	require.NoError(t, err)

	query := queryclient.NewClient(&stubProvider{rows: stubTxs(6)}, queryclient.Config{
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
		Logger:       logger,
	})

	registry := tools.NewRegistry(tools.Deps{
		Query:    query,
		Resolver: tokens.NewResolver(tokens.DefaultRegistry()),
		Swap:     oneinch.NewClient("", ""),
		Advisor:  advisor.New(advisor.DefaultThresholds(), logger),
		Cache:    analysisCache,
		Logger:   logger,
	})

	handlers := &server.Handlers{
		Registry:     registry,
		Cache:        analysisCache,
		AI:           nil,
		AIBaseConfig: ai.AgentConfig{},
		DevMode:      true,
		Logger:       logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:    testAPIAddr,
			DevMode: true,
			APIKey:  testAPIKey,
		},
	})
	require.NoError(t, err)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("Server error: %v", err)
		}
	}()

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	// Cleanup function
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return srv, redisClient, cleanup
}

func makeRequest(t *testing.T, method, url string, body interface{}, expectedStatus int) *http.Response {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "Expected status %d, got %d", expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_Health(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, "http://localhost:8092/v1/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var response server.HealthResponse
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	assert.True(t, response.OK)
}

func TestIntegration_ToolsList(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, "http://localhost:8092/v1/tools", nil, http.StatusOK)
	defer resp.Body.Close()

	var response struct {
		Items []tools.Info `json:"items"`
	}
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	require.Len(t, response.Items, 4)
	names := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		names = append(names, item.Name)
	}
	assert.Contains(t, names, "analyzeWallet")
	assert.Contains(t, names, "recentTransactions")
	assert.Contains(t, names, "smartSwapAnalyzer")
	assert.Contains(t, names, "gasOptimizationAssistant")
}

func TestIntegration_AnalyzeWallet(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	payload := map[string]string{"wallet_address": testWallet}
	resp := makeRequest(t, http.MethodPost, "http://localhost:8092/v1/tools/analyzeWallet", payload, http.StatusOK)
	defer resp.Body.Close()

	var response server.ToolInvokeResponse
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	assert.False(t, response.IsError, response.Text)
	assert.Contains(t, response.Text, "Wallet "+testWallet)
	assert.Contains(t, response.Text, "Transactions: 6 (6 successful, 100.0% success rate)")
}

func TestIntegration_ToolErrorComesBackFlagged(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	payload := map[string]string{"wallet_address": "not-an-address"}
	resp := makeRequest(t, http.MethodPost, "http://localhost:8092/v1/tools/analyzeWallet", payload, http.StatusOK)
	defer resp.Body.Close()

	var response server.ToolInvokeResponse
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	assert.True(t, response.IsError)
	assert.Contains(t, response.Text, "Error: invalid wallet address")
}

func TestIntegration_UnknownToolIsFlagged(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodPost, "http://localhost:8092/v1/tools/noSuchTool", map[string]string{}, http.StatusOK)
	defer resp.Body.Close()

	var response server.ToolInvokeResponse
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	assert.True(t, response.IsError)
	assert.Contains(t, response.Text, "unknown tool")
}

func TestIntegration_RecentAnalyses(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Run two analyses, then read back the event list.
	payload := map[string]string{"wallet_address": testWallet}
	resp := makeRequest(t, http.MethodPost, "http://localhost:8092/v1/tools/analyzeWallet", payload, http.StatusOK)
	resp.Body.Close()
	resp = makeRequest(t, http.MethodPost, "http://localhost:8092/v1/tools/recentTransactions", payload, http.StatusOK)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, "http://localhost:8092/v1/analyses/recent", nil, http.StatusOK)
	defer resp.Body.Close()

	var response struct {
		Items []*models.AnalysisEvent `json:"items"`
	}
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	require.Len(t, response.Items, 2)
	// Newest first.
	assert.Equal(t, "recentTransactions", response.Items[0].Tool)
	assert.Equal(t, "analyzeWallet", response.Items[1].Tool)
	assert.Equal(t, testWallet, response.Items[0].Wallet)
}

func TestIntegration_TransactionCacheRoundTrip(t *testing.T) {
	_, redisClient, cleanup := setupIntegrationTest(t)
	defer cleanup()

	logger := logrus.New()
	analysisCache, err := cache.NewRedisCache(redisClient, 30*time.Second, logger)
	require.NoError(t, err)

	ctx := context.Background()
	txs := stubTxs(3)

	require.NoError(t, analysisCache.PutTransactions(ctx, testWallet, txs))

	got, err := analysisCache.GetTransactions(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, txs[0].Hash, got[0].Hash)
	assert.Equal(t, txs[0].BlockTime.Unix(), got[0].BlockTime.Unix())

	// A wallet that was never cached reports the sentinel.
	_, err = analysisCache.GetTransactions(ctx, "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, cache.ErrNotCached)
}

func TestIntegration_PubSubDeliversEvents(t *testing.T) {
	_, redisClient, cleanup := setupIntegrationTest(t)
	defer cleanup()

	logger := logrus.New()
	analysisCache, err := cache.NewRedisCache(redisClient, 30*time.Second, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := analysisCache.SubscribeAnalyses(ctx)
	require.NoError(t, err)

	// Publish through the API path.
	payload := map[string]string{"wallet_address": testWallet}
	resp := makeRequest(t, http.MethodPost, "http://localhost:8092/v1/tools/analyzeWallet", payload, http.StatusOK)
	resp.Body.Close()

	select {
	case ev := <-events:
		require.NotNil(t, ev)
		assert.Equal(t, "analyzeWallet", ev.Tool)
		assert.Equal(t, testWallet, ev.Wallet)
		assert.Equal(t, 6, ev.TransactionCount)
	case <-ctx.Done():
		t.Fatal("timed out waiting for analysis event")
	}
}

func TestIntegration_AuthRequired(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Missing X-API-Key header is rejected.
	req, err := http.NewRequest(http.MethodGet, "http://localhost:8092/v1/health", nil)
	require.NoError(t, err)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}
