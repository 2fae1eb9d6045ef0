// handlers_trendlog.go - Trend log read handlers
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/export"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/trendlog"
)

// TrendLogHandlerImpl implements the TrendLogHandler interface
type TrendLogHandlerImpl struct {
	sessions      SessionManager
	runs          RunStore
	exporters     *export.Registry
	defaultFormat string
}

// NewTrendLogHandler creates a new trend log handler instance. runs may be
// nil when persistence is disabled.
func NewTrendLogHandler(sessions SessionManager, runs RunStore, exporters *export.Registry, defaultFormat string) TrendLogHandler {
	if exporters == nil {
		exporters = export.NewRegistry()
	}
	if defaultFormat == "" {
		defaultFormat = "json"
	}
	return &TrendLogHandlerImpl{
		sessions:      sessions,
		runs:          runs,
		exporters:     exporters,
		defaultFormat: defaultFormat,
	}
}

// HandleGetDescriptor returns the static metadata of a trend log
func (h *TrendLogHandlerImpl) HandleGetDescriptor(c echo.Context) error {
	tl, err := h.open(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tl.Descriptor().Properties())
}

// HandleGetHistory reads the log buffer and returns its value series
func (h *TrendLogHandlerImpl) HandleGetHistory(c echo.Context) error {
	tl, series, err := h.readBuffer(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyResponse{
		seriesHeader: newSeriesHeader(tl.Descriptor().ObjectID(), series),
		Values:       series.Values(),
	})
}

// HandleGetStatus reads the log buffer and returns its status flag series
func (h *TrendLogHandlerImpl) HandleGetStatus(c echo.Context) error {
	tl, series, err := h.readBuffer(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{
		seriesHeader: newSeriesHeader(tl.Descriptor().ObjectID(), series),
		Status:       series.Status(),
	})
}

// HandleGetRecords reads the log buffer and returns the full decoded records
func (h *TrendLogHandlerImpl) HandleGetRecords(c echo.Context) error {
	tl, series, err := h.readBuffer(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recordsResponse{
		seriesHeader: newSeriesHeader(tl.Descriptor().ObjectID(), series),
		Records:      series.Raw(),
	})
}

// HandleExport reads the log buffer and writes it in the requested format
func (h *TrendLogHandlerImpl) HandleExport(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = h.defaultFormat
	}
	exporter, err := h.exporters.Get(format)
	if err != nil {
		return NewBadRequestError("unsupported export format", err)
	}

	tl, series, err := h.readBuffer(c)
	if err != nil {
		return err
	}

	props := tl.Descriptor().Properties()
	var buf bytes.Buffer
	if err := exporter.Export(&buf, props, series); err != nil {
		if errors.Is(err, export.ErrNoNumericData) {
			return NewNoNumericDataError(exporter.Name())
		}
		return NewInternalError("export failed", err)
	}

	filename := fmt.Sprintf("%s.%s", exportBaseName(props), exporter.Name())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, exporter.ContentType(), buf.Bytes())
}

// HandlePersist reads the log buffer and stores the decoded series
func (h *TrendLogHandlerImpl) HandlePersist(c echo.Context) error {
	if h.runs == nil {
		return NewServiceUnavailableError("persistence is disabled")
	}

	tl, series, err := h.readBuffer(c)
	if err != nil {
		return err
	}

	run, err := h.runs.SaveSeries(c.Request().Context(), c.Param("id"), tl.Descriptor().Properties(), series)
	if err != nil {
		return NewInternalError("failed to persist series", err)
	}
	return c.JSON(http.StatusCreated, run)
}

func (h *TrendLogHandlerImpl) open(c echo.Context) (*trendlog.TrendLog, error) {
	fileID := c.Param("id")
	if fileID == "" {
		return nil, NewValidationError("id")
	}
	rawOID := pathParam(c, "oid")
	oid, err := models.ParseObjectIdentifier(rawOID)
	if err != nil {
		return nil, NewBadRequestError("invalid object identifier", err)
	}

	tl, err := h.sessions.OpenTrendLog(c.Request().Context(), fileID, oid)
	if err != nil {
		return nil, mapDomainError(err, fileID, rawOID)
	}
	return tl, nil
}

func (h *TrendLogHandlerImpl) readBuffer(c echo.Context) (*trendlog.TrendLog, *models.DecodedSeries, error) {
	tl, err := h.open(c)
	if err != nil {
		return nil, nil, err
	}
	series, err := tl.ReadLogBuffer(c.Request().Context())
	if err != nil {
		return nil, nil, mapDomainError(err, c.Param("id"), pathParam(c, "oid"))
	}
	return tl, series, nil
}

// Request/Response types

type seriesHeader struct {
	ObjectID models.ObjectIdentifier `json:"objectId"`
	Count    int                     `json:"count"`
	Range    *models.TimeRange       `json:"range,omitempty"`
}

func newSeriesHeader(id models.ObjectIdentifier, series *models.DecodedSeries) seriesHeader {
	return seriesHeader{ObjectID: id, Count: series.Len(), Range: series.TimeRange()}
}

type historyResponse struct {
	seriesHeader
	Values []models.ValuePoint `json:"values"`
}

type statusResponse struct {
	seriesHeader
	Status []models.StatusPoint `json:"status"`
}

type recordsResponse struct {
	seriesHeader
	Records []models.DecodedRecord `json:"records"`
}

// Helper functions

// pathParam returns an unescaped path parameter. Object identifiers carry a
// colon that clients may percent-encode.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func exportBaseName(props models.TrendLogProperties) string {
	name := props.ObjectName
	if name == "" {
		name = props.ObjectID.String()
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '"', ' ':
			return '_'
		}
		return r
	}, name)
}
