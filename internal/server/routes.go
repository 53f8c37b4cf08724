package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes wires the middleware stack and the /v1 API surface.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = jsonErrorHandler

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// When an API key is configured, every route requires it.
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/tools", h.ToolsList)
	v1.POST("/tools/:name", h.ToolInvoke)
	v1.GET("/analyses/recent", h.RecentAnalyses)

	// Each /v1/ai request runs a full analysis plus an LLM round trip, so the
	// group gets its own rate limit: one request per 5 seconds, burst of 2.
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2),
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	aigroup.POST("/ask", h.AIAsk)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

// jsonErrorHandler keeps every error the framework raises, 404s included, in
// the same ErrorResponse envelope the handlers use.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if he, ok := err.(*echo.HTTPError); ok {
		_ = c.JSON(he.Code, ErrorResponse{
			Error: http.StatusText(he.Code),
			Code:  he.Code,
		})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  http.StatusInternalServerError,
	})
}
