package dune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/queryclient"

	"github.com/sirupsen/logrus"
)

// Client talks to the Dune Analytics execution API. Query execution on
// Dune is asynchronous: executing a saved query returns an execution id,
// and results are fetched by polling that id. The saved query takes the
// wallet address as a parameter and returns the wallet's transactions
// newest-first, with the direction column computed server-side.
type Client struct {
	baseURL    string
	apiKey     string
	queryID    int64
	httpClient *http.Client
	logger     *logrus.Logger
}

// ClientConfig holds configuration for the Dune client.
type ClientConfig struct {
	BaseURL string // default https://api.dune.com
	APIKey  string
	QueryID int64
	Timeout time.Duration
	Logger  *logrus.Logger
}

// NewClient creates a Dune execution API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.dune.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		queryID:    cfg.QueryID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// HTTPError is a non-2xx response from the Dune API.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("dune http %d", e.StatusCode)
	}
	return fmt.Sprintf("dune http %d: %s", e.StatusCode, b)
}

// Submit executes the saved wallet-transactions query for the given wallet
// and returns the execution id to poll.
func (c *Client) Submit(ctx context.Context, wallet string) (string, error) {
	payload := executeRequest{
		QueryParameters: map[string]string{"wallet_address": wallet},
	}
	u := fmt.Sprintf("%s/api/v1/query/%d/execute", c.baseURL, c.queryID)

	var out executeResponse
	if err := c.do(ctx, http.MethodPost, u, payload, &out); err != nil {
		return "", err
	}
	if out.ExecutionID == "" {
		return "", fmt.Errorf("dune returned empty execution id")
	}

	c.logger.WithFields(logrus.Fields{
		"execution_id": out.ExecutionID,
		"state":        out.State,
	}).Debug("dune execution created")
	return out.ExecutionID, nil
}

// Status fetches the state (and, once completed, the rows) of an execution.
func (c *Client) Status(ctx context.Context, jobID string) (*queryclient.JobStatus, error) {
	u := fmt.Sprintf("%s/api/v1/execution/%s/results", c.baseURL, jobID)

	var out resultsResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}

	switch out.State {
	case stateCompleted:
		rows, err := parseRows(out.Result.Rows)
		if err != nil {
			return nil, err
		}
		return &queryclient.JobStatus{State: queryclient.ProviderCompleted, Rows: rows}, nil

	case stateFailed, stateCancelled, stateExpired:
		msg := out.Error.Message
		if msg == "" {
			msg = strings.ToLower(strings.TrimPrefix(out.State, "QUERY_STATE_"))
		}
		return &queryclient.JobStatus{State: queryclient.ProviderFailed, ErrMessage: msg}, nil

	default:
		// QUERY_STATE_PENDING, QUERY_STATE_EXECUTING and anything Dune adds
		// later all mean "not done yet".
		return &queryclient.JobStatus{State: queryclient.ProviderPending}, nil
	}
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Dune-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	data, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{StatusCode: res.StatusCode, Body: data}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode dune response: %w", err)
	}
	return nil
}
