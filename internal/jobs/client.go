package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/paycore/payroll-engine/internal/domain"
)

// Enqueuer submits withholding tasks.
type Enqueuer struct {
	client   *asynq.Client
	maxRetry int
}

// NewEnqueuer constructs an asynq-backed enqueuer.
func NewEnqueuer(redisOpts asynq.RedisConnOpt, maxRetry int) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpts), maxRetry: maxRetry}
}

// EnqueueResult enqueues a paycheck's withholding events. Paychecks without events are
// skipped and a paycheck already queued is not queued again; both return a nil TaskInfo.
func (e *Enqueuer) EnqueueResult(ctx context.Context, r *domain.PaycheckResult) (*asynq.TaskInfo, error) {
	if len(r.WithholdingEvents) == 0 {
		return nil, nil
	}
	task, err := NewApplyWithholdingTask(PayloadFor(r), asynq.MaxRetry(e.maxRetry))
	if err != nil {
		return nil, err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, nil
	}
	return info, err
}

// EnqueueResults enqueues every result and returns how many tasks were queued.
func (e *Enqueuer) EnqueueResults(ctx context.Context, results []*domain.PaycheckResult) (int, error) {
	queued := 0
	for _, r := range results {
		info, err := e.EnqueueResult(ctx, r)
		if err != nil {
			return queued, err
		}
		if info != nil {
			queued++
		}
	}
	return queued, nil
}

// Close releases client resources.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
