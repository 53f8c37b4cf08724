package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// ToolInvokeResponse wraps a tool result with its execution time
type ToolInvokeResponse struct {
	Text    string `json:"text"`     // Rendered tool output
	IsError bool   `json:"is_error"` // Whether the tool reported an error
	TookMs  int64  `json:"took_ms"`  // Execution time in milliseconds
}

// AIAskRequest represents a natural language query about a wallet
type AIAskRequest struct {
	WalletAddress string `json:"wallet_address"` // Wallet to analyze
	Question      string `json:"question"`       // Natural language question
	Model         string `json:"model"`          // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}
