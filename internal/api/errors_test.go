package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendlog-viewer/backend/internal/capture"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
	"github.com/trendlog-viewer/backend/internal/session"
	"github.com/trendlog-viewer/backend/internal/trendlog"
)

func TestMapDomainError(t *testing.T) {
	oid := models.ObjectIdentifier{Type: "trendLog", Instance: 7}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"capture not found", fmt.Errorf("%w: cap-9", session.ErrCaptureNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid capture", fmt.Errorf("%w: yaml", session.ErrInvalidCapture), http.StatusBadRequest, "BAD_REQUEST"},
		{
			"unknown object wrapped in metadata error",
			&trendlog.MetadataReadError{ObjectID: oid, Err: fmt.Errorf("%w: %s", capture.ErrUnknownObject, oid)},
			http.StatusNotFound, "NOT_FOUND",
		},
		{"metadata error", &trendlog.MetadataReadError{ObjectID: oid, Err: errors.New("timeout")}, http.StatusBadGateway, "DEVICE_READ_ERROR"},
		{"buffer error", &trendlog.BufferReadError{ObjectID: oid, Err: errors.New("segmentation not supported")}, http.StatusBadGateway, "DEVICE_READ_ERROR"},
		{"timestamp", &parser.TimestampDecodeError{Field: "month", Err: parser.ErrUnspecifiedField}, http.StatusUnprocessableEntity, "DECODE_ERROR"},
		{"malformed", fmt.Errorf("decoding: %w", &parser.MalformedRecordError{}), http.StatusUnprocessableEntity, "DECODE_ERROR"},
		{"out of order", &parser.OutOfOrderError{Index: 1}, http.StatusUnprocessableEntity, "DECODE_ERROR"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"passthrough", NewConflictError("busy"), http.StatusConflict, "CONFLICT"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := mapDomainError(tt.err, "cap-9", oid.String())
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", NewNotFoundError("run", "r1"), http.StatusNotFound, "NOT_FOUND"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
