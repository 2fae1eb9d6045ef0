// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/trendlog-viewer/backend/internal/export"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions      SessionManager
	Runs          RunStore // nil disables persistence
	Exporters     *export.Registry
	DefaultFormat string
	Version       string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Capture  CaptureHandler
	TrendLog TrendLogHandler
	Run      RunHandler
	Decode   DecodeHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Sessions, deps.Runs),
		Capture:  NewCaptureHandler(deps.Sessions),
		TrendLog: NewTrendLogHandler(deps.Sessions, deps.Runs, deps.Exporters, deps.DefaultFormat),
		Run:      NewRunHandler(deps.Runs),
		Decode:   NewDecodeHandler(deps.Sessions.Decoder()),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Capture files
	captureGroup := apiGroup.Group("/captures")
	captureGroup.POST("", handlers.Capture.HandleUploadCapture)
	captureGroup.GET("", handlers.Capture.HandleListCaptures)
	captureGroup.GET("/:id", handlers.Capture.HandleGetCapture)
	captureGroup.DELETE("/:id", handlers.Capture.HandleDeleteCapture)

	// Trend logs inside a capture
	trendGroup := captureGroup.Group("/:id/trendlogs/:oid")
	trendGroup.GET("", handlers.TrendLog.HandleGetDescriptor)
	trendGroup.GET("/history", handlers.TrendLog.HandleGetHistory)
	trendGroup.GET("/status", handlers.TrendLog.HandleGetStatus)
	trendGroup.GET("/records", handlers.TrendLog.HandleGetRecords)
	trendGroup.GET("/export", handlers.TrendLog.HandleExport)
	trendGroup.POST("/persist", handlers.TrendLog.HandlePersist)

	// Persisted series
	runGroup := apiGroup.Group("/runs")
	runGroup.GET("", handlers.Run.HandleListRuns)
	runGroup.GET("/:runId/records", handlers.Run.HandleGetRunRecords)
	runGroup.DELETE("/:runId", handlers.Run.HandleDeleteRun)

	// Ad-hoc decoding
	apiGroup.POST("/decode", handlers.Decode.HandleDecode)
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	EnableRequestLogging bool
	EnableCORS           bool
	AllowOrigins         string // comma separated
	BodyLimit            string
	RequestTimeout       time.Duration
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !opts.EnableRequestLogging || c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				// Uploads and persistence may legitimately run long
				return c.Request().Method == http.MethodPost
			},
			ErrorMessage: "Request timeout - reading the trend log took too long",
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := strings.Split(opts.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
