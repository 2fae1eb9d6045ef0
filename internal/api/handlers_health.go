// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	sessions SessionManager
	runs     RunStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions SessionManager, runs RunStore) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		sessions: sessions,
		runs:     runs,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	loaded := 0
	if h.sessions != nil {
		loaded = h.sessions.Loaded()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        h.version,
		"loadedCaptures": loaded,
		"persistence":    h.runs != nil,
	})
}
