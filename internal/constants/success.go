package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
type APISuccess struct {
	Code   string
	Status int
}

var (
	SuccessAggregationCompleted = APISuccess{
		Code:   CodeAggregationCompleted,
		Status: http.StatusOK,
	}
	// A run skipped because another holder owns the lease is still a 200 so
	// schedulers do not retry it.
	SuccessAggregationSkipped = APISuccess{
		Code:   CodeAggregationSkipped,
		Status: http.StatusOK,
	}
)
