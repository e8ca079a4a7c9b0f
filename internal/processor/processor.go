// Package processor drives the pipeline over a list of requests, one at a
// time, and records each outcome for reporting.
package processor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

type Runner interface {
	Run(ctx context.Context, req types.PipelineRequest) (types.PipelineResponse, error)
}

// Result is the outcome of a batch. Errors is index-aligned with Items.
type Result struct {
	Items  []types.BatchItem
	Errors []error
}

// ProcessAll runs every request sequentially. A failed item never stops the
// batch; only ctx cancellation does, and the items processed so far are kept.
func ProcessAll(ctx context.Context, r Runner, reqs []types.PipelineRequest, log *logrus.Entry) (Result, error) {
	if log == nil {
		log = logger.Discard().Entry
	}
	res := Result{
		Items:  make([]types.BatchItem, 0, len(reqs)),
		Errors: make([]error, 0, len(reqs)),
	}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		itemLog := log.WithFields(logrus.Fields{"row": i + 1, "source_url": req.SourceURL})
		itemLog.Info("processing row")

		start := time.Now()
		resp, err := r.Run(ctx, req)
		item := types.BatchItem{Request: req, Response: resp}
		if err != nil {
			item.Error = err.Error()
			logger.WithError(itemLog, err).Warn("row failed")
		}
		itemLog.WithFields(logrus.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
			"success":     resp.Success,
			"analysis":    resp.Analysis != nil,
		}).Info("row finished")

		res.Items = append(res.Items, item)
		res.Errors = append(res.Errors, err)
	}
	return res, nil
}
