package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/ai"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/storage"
	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/tools"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Registry     *tools.Registry       // Wallet analytics tool registry
	Cache        storage.AnalysisCache // Redis-backed analysis cache (optional)
	AI           *ai.Agent             // AI agent for natural language questions (optional)
	AIBaseConfig ai.AgentConfig        // Base configuration for AI agents
	DevMode      bool                  // Enable detailed error responses in development
	Logger       *logrus.Logger        // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// ToolsList returns the registered tools and their descriptions
func (h *Handlers) ToolsList(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"items": h.Registry.List()})
}

// ToolInvoke executes a named tool against the JSON body as input.
// Every tool-level failure, unknown names included, comes back as 200 with
// is_error set; only an unreadable or invalid body maps to an HTTP error.
func (h *Handlers) ToolInvoke(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return h.err(c, http.StatusBadRequest, "tool name is required", nil)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "failed to read body", nil)
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	// A tool call may run a full submit-and-poll query cycle, so this
	// timeout has to exceed interval * attempts.
	ctx, cancel := h.withTimeout(c.Request().Context(), 80*time.Second)
	defer cancel()

	start := time.Now()
	res := h.Registry.Execute(ctx, name, json.RawMessage(body))

	return c.JSON(http.StatusOK, ToolInvokeResponse{
		Text:    res.Text,
		IsError: res.IsError,
		TookMs:  time.Since(start).Milliseconds(),
	})
}

// RecentAnalyses returns the most recent analysis events with optional limit parameter
// Accepts limit query parameter (default: 50, range: 1-100)
func (h *Handlers) RecentAnalyses(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusBadRequest, "cache is not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := 50
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.RecentAnalyses(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get analyses", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// AIAsk answers natural language questions about a wallet using the AI agent
// Supports optional model override for one-off requests
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	req.Question = strings.TrimSpace(req.Question)
	if req.WalletAddress == "" {
		return h.err(c, http.StatusBadRequest, "wallet_address is required", map[string]any{"wallet_address": "required"})
	}
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 120*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(h.Registry, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		agent = a
	}

	res, err := agent.Ask(ctx, req.WalletAddress, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
