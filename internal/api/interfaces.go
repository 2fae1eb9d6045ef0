// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
	"github.com/trendlog-viewer/backend/internal/trendlog"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CaptureHandler handles capture file operations
type CaptureHandler interface {
	HandleUploadCapture(c echo.Context) error
	HandleListCaptures(c echo.Context) error
	HandleGetCapture(c echo.Context) error
	HandleDeleteCapture(c echo.Context) error
}

// TrendLogHandler handles reads of the trend logs inside a capture
type TrendLogHandler interface {
	HandleGetDescriptor(c echo.Context) error
	HandleGetHistory(c echo.Context) error
	HandleGetStatus(c echo.Context) error
	HandleGetRecords(c echo.Context) error
	HandleExport(c echo.Context) error
	HandlePersist(c echo.Context) error
}

// RunHandler handles persisted series
type RunHandler interface {
	HandleListRuns(c echo.Context) error
	HandleGetRunRecords(c echo.Context) error
	HandleDeleteRun(c echo.Context) error
}

// DecodeHandler decodes log buffers posted by clients
type DecodeHandler interface {
	HandleDecode(c echo.Context) error
}

// SessionManager defines the interface for capture session management
// This allows mocking in tests
type SessionManager interface {
	AddCapture(name string, r io.Reader) (*models.CaptureSummary, error)
	Summary(fileID string) (*models.CaptureSummary, error)
	List(limit int) ([]*models.FileInfo, error)
	DeleteCapture(fileID string) error
	OpenTrendLog(ctx context.Context, fileID string, id models.ObjectIdentifier) (*trendlog.TrendLog, error)
	Loaded() int
	Decoder() *parser.Decoder
}

// RunStore persists decoded series, implemented by parser.DuckStore
type RunStore interface {
	SaveSeries(ctx context.Context, captureID string, props models.TrendLogProperties, series *models.DecodedSeries) (*parser.StoredRun, error)
	Runs(ctx context.Context) ([]parser.StoredRun, error)
	Run(ctx context.Context, runID string) (*parser.StoredRun, error)
	QueryRange(ctx context.Context, runID string, start, end time.Time) (*models.DecodedSeries, error)
	DeleteRun(ctx context.Context, runID string) error
}
