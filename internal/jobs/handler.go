package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/internal/ledger"
)

// EventApplier is satisfied by ledger.Reconciler.
type EventApplier interface {
	ApplyEvents(ctx context.Context, events []domain.WithholdingEvent) (ledger.ReconcileReport, error)
}

// ApplyWithholdingJob handles TaskApplyWithholding. Malformed payloads and events the
// ledger rejects are not retried; store errors are.
type ApplyWithholdingJob struct {
	Ledger EventApplier
	Logger *slog.Logger
}

func NewApplyWithholdingJob(applier EventApplier, logger *slog.Logger) *ApplyWithholdingJob {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ApplyWithholdingJob{Ledger: applier, Logger: logger}
}

// Handle applies the payload's events.
func (j *ApplyWithholdingJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("apply withholding: handler not configured")
	}
	var payload WithholdingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode withholding payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := j.Logger.With(
		slog.String("employer_id", payload.EmployerID),
		slog.String("paycheck_id", payload.PaycheckID),
	)
	if len(payload.Events) == 0 {
		logger.DebugContext(ctx, "no withholding events")
		return nil
	}

	report, err := j.Ledger.ApplyEvents(ctx, payload.Events)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidEvent) {
			logger.ErrorContext(ctx, "rejected withholding events", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		logger.WarnContext(ctx, "apply withholding events", slog.Any("error", err), slog.Int("applied", report.Applied))
		return err
	}

	logger.InfoContext(ctx, "applied withholding events",
		slog.Int("applied", report.Applied),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("completed", len(report.Completed)),
	)
	return nil
}
