package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

// Failure is one failed URL in a batch summary.
type Failure struct {
	URL    string
	Reason FailureReason
}

// Summary is the outcome of a batch run. Skipped counts tasks never started
// because the run was stopped.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failures  []Failure
}

// Runner processes URL tasks strictly in ingest order, one at a time, with a
// hard minimum gap between the end of one task and the start of the next.
type Runner struct {
	session *Session
	delay   time.Duration
	logger  *zap.Logger
}

// NewRunner builds a runner around one session pipeline. Delay <= 0 disables
// the inter-task gap.
func NewRunner(session *Session, delay time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		session: session,
		delay:   delay,
		logger:  logger.Named("runner"),
	}
}

// Run drives every task through the session pipeline. Per-URL failures are
// recorded and the batch continues; only the stop signal halts it, and only
// at task boundaries. An in-flight task always finishes its writes.
func (r *Runner) Run(ctx context.Context, tasks []schemas.URLTask) Summary {
	summary := Summary{Total: len(tasks)}

	for i, task := range tasks {
		// Stop requests take effect here, never mid-task.
		if ctx.Err() != nil {
			summary.Skipped = len(tasks) - i
			r.logger.Info("Stop requested, halting batch",
				zap.Int("processed", i), zap.Int("skipped", summary.Skipped))
			break
		}

		if _, err := r.session.Run(context.WithoutCancel(ctx), i, task); err != nil {
			failure := Failure{URL: task.URL, Reason: FailureLoad}
			var failed *FailedError
			if errors.As(err, &failed) {
				failure.Reason = failed.Reason
			}
			summary.Failures = append(summary.Failures, failure)
		} else {
			summary.Succeeded++
		}

		if i < len(tasks)-1 {
			r.pause(ctx)
		}
	}

	r.logger.Info("Batch finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", len(summary.Failures)),
		zap.Int("skipped", summary.Skipped))
	return summary
}

// pause sleeps the full inter-task gap, starting the clock at the previous
// task's terminal transition. A stop signal cuts the pause short; the next
// loop iteration then exits at the boundary check.
func (r *Runner) pause(ctx context.Context) {
	if r.delay <= 0 {
		return
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
