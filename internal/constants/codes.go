package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"

	// Scheduler trigger codes
	CodeInvalidSignature  = "INVALID_SIGNATURE"
	CodeAggregationFailed = "AGGREGATION_FAILED"
	CodeRateLimited       = "RATE_LIMITED"

	// Success codes
	CodeAggregationCompleted = "AGGREGATION_COMPLETED"
	CodeAggregationSkipped   = "AGGREGATION_SKIPPED"
)
