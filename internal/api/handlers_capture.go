// handlers_capture.go - Capture file operation handlers
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/session"
)

const defaultListLimit = 50

// CaptureHandlerImpl implements the CaptureHandler interface
type CaptureHandlerImpl struct {
	sessions SessionManager
}

// NewCaptureHandler creates a new capture handler instance
func NewCaptureHandler(sessions SessionManager) CaptureHandler {
	return &CaptureHandlerImpl{sessions: sessions}
}

// HandleUploadCapture accepts a capture file (multipart/form-data) and validates it
func (h *CaptureHandlerImpl) HandleUploadCapture(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if file.Filename == "" {
		return NewValidationError("file")
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	summary, err := h.sessions.AddCapture(file.Filename, src)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCapture) {
			return NewBadRequestError("invalid capture file", err)
		}
		return NewInternalError("failed to save capture", err)
	}

	return c.JSON(http.StatusCreated, summary)
}

// HandleListCaptures returns the stored capture files, newest first
func (h *CaptureHandlerImpl) HandleListCaptures(c echo.Context) error {
	limit := defaultListLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.sessions.List(limit)
	if err != nil {
		return NewInternalError("failed to list captures", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetCapture returns the file info and trend log ids of one capture
func (h *CaptureHandlerImpl) HandleGetCapture(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	summary, err := h.sessions.Summary(id)
	if err != nil {
		return mapDomainError(err, id, "")
	}
	return c.JSON(http.StatusOK, summary)
}

// HandleDeleteCapture removes a capture file
func (h *CaptureHandlerImpl) HandleDeleteCapture(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.sessions.DeleteCapture(id); err != nil {
		return mapDomainError(err, id, "")
	}
	return c.NoContent(http.StatusNoContent)
}
