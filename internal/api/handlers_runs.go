// handlers_runs.go - Persisted series handlers
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
)

// RunHandlerImpl implements the RunHandler interface
type RunHandlerImpl struct {
	runs RunStore
}

// NewRunHandler creates a new run handler instance. runs may be nil when
// persistence is disabled.
func NewRunHandler(runs RunStore) RunHandler {
	return &RunHandlerImpl{runs: runs}
}

// HandleListRuns returns every stored series, newest first
func (h *RunHandlerImpl) HandleListRuns(c echo.Context) error {
	if h.runs == nil {
		return NewServiceUnavailableError("persistence is disabled")
	}

	runs, err := h.runs.Runs(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list runs", err)
	}
	return c.JSON(http.StatusOK, runs)
}

// HandleGetRunRecords returns the records of a stored series, optionally
// limited to [start, end]
func (h *RunHandlerImpl) HandleGetRunRecords(c echo.Context) error {
	run, err := h.lookup(c)
	if err != nil {
		return err
	}

	start, err := parseTimestamp(c.QueryParam("start"))
	if err != nil {
		return NewValidationError("start")
	}
	end, err := parseTimestamp(c.QueryParam("end"))
	if err != nil {
		return NewValidationError("end")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return NewBadRequestError("end must not be before start", nil)
	}

	series, err := h.runs.QueryRange(c.Request().Context(), run.ID, start, end)
	if err != nil {
		return NewInternalError("failed to query run", err)
	}

	return c.JSON(http.StatusOK, runRecordsResponse{
		Run:     run,
		Count:   series.Len(),
		Range:   series.TimeRange(),
		Records: series.Raw(),
	})
}

// HandleDeleteRun removes a stored series
func (h *RunHandlerImpl) HandleDeleteRun(c echo.Context) error {
	run, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := h.runs.DeleteRun(c.Request().Context(), run.ID); err != nil {
		return NewInternalError("failed to delete run", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RunHandlerImpl) lookup(c echo.Context) (*parser.StoredRun, error) {
	if h.runs == nil {
		return nil, NewServiceUnavailableError("persistence is disabled")
	}
	id := c.Param("runId")
	if id == "" {
		return nil, NewValidationError("runId")
	}

	run, err := h.runs.Run(c.Request().Context(), id)
	if err != nil {
		return nil, NewInternalError("failed to load run", err)
	}
	if run == nil {
		return nil, NewNotFoundError("run", id)
	}
	return run, nil
}

// Request/Response types

type runRecordsResponse struct {
	Run     *parser.StoredRun      `json:"run"`
	Count   int                    `json:"count"`
	Range   *models.TimeRange      `json:"range,omitempty"`
	Records []models.DecodedRecord `json:"records"`
}

// Helper functions

// parseTimestamp accepts RFC3339 or Unix milliseconds. Empty means unbounded.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
