package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgNotFound           = "Not found"

	// Scheduler trigger messages
	MsgInvalidSignature  = "Missing or invalid cron signature"
	MsgAggregationFailed = "Click aggregation run failed"
	MsgRateLimited       = "Too many requests"
)
