package http

import (
	"context"
	"net/http"

	"github.com/IgorGrieder/linkedge/internal/constants"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/IgorGrieder/linkedge/pkg/httputils"
	"go.uber.org/zap"
)

// AggregationRunner executes one click aggregation pass.
type AggregationRunner interface {
	Run(ctx context.Context) (clicks.RunSummary, error)
}

type CronHandler struct {
	runner AggregationRunner
}

func NewCronHandler(runner AggregationRunner) *CronHandler {
	return &CronHandler{runner: runner}
}

// AggregateClicks runs a pass synchronously and returns its summary.
//
// The run is detached from client cancellation: a scheduler that hangs up
// mid-run must not abort increments for events already drained.
func (h *CronHandler) AggregateClicks(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		logger.Error("scheduled click aggregation failed", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrAggregationFailed)
		return
	}

	if summary.Skipped {
		httputils.WriteAPISuccess(w, r, constants.SuccessAggregationSkipped, summary)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessAggregationCompleted, summary)
}
