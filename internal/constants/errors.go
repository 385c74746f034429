package constants

import "net/http"

// APIError represents a standardized API error with code, message, and HTTP status.
// Use these predefined errors for consistent API responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInvalidRequestBody = APIError{
		Code:    CodeInvalidRequest,
		Message: MsgInvalidRequestBody,
		Status:  http.StatusBadRequest,
	}
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
	ErrUnauthorized = APIError{
		Code:    CodeUnauthorized,
		Message: MsgUnauthorized,
		Status:  http.StatusUnauthorized,
	}
	ErrNotFound = APIError{
		Code:    CodeNotFound,
		Message: MsgNotFound,
		Status:  http.StatusNotFound,
	}
)

// Scheduler trigger errors
var (
	ErrInvalidSignature = APIError{
		Code:    CodeInvalidSignature,
		Message: MsgInvalidSignature,
		Status:  http.StatusUnauthorized,
	}
	ErrAggregationFailed = APIError{
		Code:    CodeAggregationFailed,
		Message: MsgAggregationFailed,
		Status:  http.StatusInternalServerError,
	}
	ErrRateLimited = APIError{
		Code:    CodeRateLimited,
		Message: MsgRateLimited,
		Status:  http.StatusTooManyRequests,
	}
)
