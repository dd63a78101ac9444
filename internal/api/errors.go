// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eda-explorer/backend/internal/describe"
	"github.com/eda-explorer/backend/internal/explorer"
	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/logging"
	"github.com/eda-explorer/backend/internal/session"
	"github.com/eda-explorer/backend/internal/storage"
)

// Error codes returned in APIError.Code.
const (
	CodeBadRequest            = "BAD_REQUEST"
	CodeValidation            = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeUnreadableFile        = "UNREADABLE_FILE"
	CodeInvalidFieldSelection = "INVALID_FIELD_SELECTION"
	CodeInvalidQuery          = "INVALID_QUERY"
	CodeTooLarge              = "FILE_TOO_LARGE"
	CodeInternal              = "INTERNAL_ERROR"
	CodeUnavailable           = "SERVICE_UNAVAILABLE"
	CodeTimeout               = "TIMEOUT"
)

// ShowErrorDetails controls whether unexpected errors expose their message.
var ShowErrorDetails = false

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

func withCause(err *APIError, cause error) *APIError {
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	return withCause(&APIError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message}, cause)
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

// NewUnreadableFileError creates a 422 error for content that cannot be
// parsed as the declared kind.
func NewUnreadableFileError(cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeUnreadableFile,
		Message: "the file could not be read with the selected options",
	}, cause)
}

// NewInvalidFieldSelectionError creates a 400 error for value counts on a
// field that is not a text column.
func NewInvalidFieldSelectionError(cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidFieldSelection,
		Message: "value counts need a text field",
	}, cause)
}

// NewInvalidQueryError creates a 400 error for a rejected explorer query.
func NewInvalidQueryError(cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidQuery,
		Message: "invalid explorer query",
	}, cause)
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	return withCause(&APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message}, cause)
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{Status: http.StatusServiceUnavailable, Code: CodeUnavailable, Message: message}
}

// FromError maps domain errors to API errors. Unknown errors become 500s
// carrying message as the user-facing text.
func FromError(err error, message string) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, loader.ErrUnreadableFile):
		return NewUnreadableFileError(err)
	case errors.Is(err, describe.ErrInvalidFieldSelection):
		return NewInvalidFieldSelectionError(err)
	case errors.Is(err, describe.ErrUnknownView):
		return NewBadRequestError("unknown view", err)
	case errors.Is(err, explorer.ErrInvalidQuery):
		return NewInvalidQueryError(err)
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "session not found"}
	case errors.Is(err, session.ErrNoTable):
		return NewConflictError("no file has been loaded into this session")
	case errors.Is(err, session.ErrTooManySessions):
		return NewServiceUnavailableError("too many active sessions, try again later")
	case errors.Is(err, storage.ErrFileNotFound):
		return withCause(&APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "file not found"}, err)
	case errors.Is(err, storage.ErrFileTooLarge):
		return withCause(&APIError{Status: http.StatusRequestEntityTooLarge, Code: CodeTooLarge, Message: "file too large"}, err)
	case errors.Is(err, context.DeadlineExceeded):
		return withCause(&APIError{Status: http.StatusGatewayTimeout, Code: CodeTimeout, Message: "request timed out"}, err)
	}
	return NewInternalError(message, err)
}

// ErrorHandler renders every error as an APIError.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = FromError(err, "An unexpected error occurred")
	}

	if apiErr.Status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("[API] request failed", "method", c.Request().Method, "path", c.Path(), "code", apiErr.Code, "error", err)
		if !ShowErrorDetails && apiErr.Code == CodeInternal {
			apiErr = &APIError{Status: apiErr.Status, Code: apiErr.Code, Message: apiErr.Message}
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
