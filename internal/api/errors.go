// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/capture"
	"github.com/trendlog-viewer/backend/internal/parser"
	"github.com/trendlog-viewer/backend/internal/session"
	"github.com/trendlog-viewer/backend/internal/trendlog"
)

// ShowErrorDetails controls whether unexpected errors expose their message.
var ShowErrorDetails = true

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewDecodeError creates a 422 error for log buffers that cannot be decoded
func NewDecodeError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "DECODE_ERROR",
		Message: "log buffer could not be decoded",
		Details: cause.Error(),
	}
}

// NewNoNumericDataError creates a 422 error for numeric-only exports of non-numeric series
func NewNoNumericDataError(format string) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "NO_NUMERIC_DATA",
		Message: fmt.Sprintf("trend log has no numeric records to export as %s", format),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewDeviceReadError creates a 502 error for failed reads of the device
func NewDeviceReadError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "DEVICE_READ_ERROR",
		Message: "reading the trend log from the device failed",
		Details: cause.Error(),
	}
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// mapDomainError converts errors of the capture, trend log and decoder
// packages into API errors. Unknown objects are checked before metadata
// failures because the former are wrapped by the latter.
func mapDomainError(err error, fileID, objectID string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, session.ErrCaptureNotFound):
		return NewNotFoundError("capture", fileID)
	case errors.Is(err, session.ErrInvalidCapture):
		return NewBadRequestError("invalid capture file", err)
	case errors.Is(err, capture.ErrUnknownObject):
		return NewNotFoundError("trend log", objectID)
	case errors.Is(err, trendlog.ErrMetadataRead), errors.Is(err, trendlog.ErrBufferRead):
		return NewDeviceReadError(err)
	case errors.Is(err, parser.ErrTimestampDecode),
		errors.Is(err, parser.ErrMalformedRecord),
		errors.Is(err, parser.ErrOutOfOrder):
		return NewDecodeError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewServiceUnavailableError("request cancelled before the device answered")
	default:
		return NewInternalError("unexpected error", err)
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if ShowErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		fmt.Printf("[API] %s %s: %v\n", c.Request().Method, c.Request().URL.Path, err)
	}

	// Send JSON response
	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
