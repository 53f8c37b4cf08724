package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public 1inch aggregation API. Requests work without
// an API key at a reduced rate limit; set ONEINCH_API_KEY for production use.
const DefaultBaseURL = "https://api.1inch.dev/swap/v6.0/1"

// Client fetches swap quotes from the 1inch aggregation API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient creates a 1inch client. An empty baseURL falls back to the
// Ethereum mainnet endpoint; an empty apiKey sends unauthenticated requests.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

// HTTPError is a non-2xx response from the 1inch API.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("1inch http %d", e.StatusCode)
	}
	return fmt.Sprintf("1inch http %d: %s", e.StatusCode, b)
}

// Quote asks the aggregator for the best output amount when swapping
// req.Amount (smallest units) of src for dst.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if strings.TrimSpace(req.Src) == "" {
		return nil, fmt.Errorf("src is required")
	}
	if strings.TrimSpace(req.Dst) == "" {
		return nil, fmt.Errorf("dst is required")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("amount is required")
	}

	q := url.Values{}
	q.Set("src", req.Src)
	q.Set("dst", req.Dst)
	q.Set("amount", req.Amount)
	q.Set("includeGas", "true")
	q.Set("includeProtocols", "true")

	u := c.BaseURL + "/quote?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode 1inch quote response: %w", err)
	}
	if strings.TrimSpace(out.DstAmount) == "" {
		return nil, fmt.Errorf("1inch returned empty dstAmount")
	}
	return &out, nil
}
