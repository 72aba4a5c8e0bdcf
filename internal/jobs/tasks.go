// Package jobs moves garnishment withholding events from calculated paychecks into the
// ledger through an asynq queue, so a ledger outage delays reconciliation instead of
// failing the pay run.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/paycore/payroll-engine/internal/domain"
)

const (
	// QueueLedger is the queue withholding tasks are enqueued on.
	QueueLedger = "ledger"
	// TaskApplyWithholding applies one paycheck's withholding events to the ledger.
	TaskApplyWithholding = "ledger:apply_withholding"
)

// WithholdingPayload carries the events of one paycheck.
type WithholdingPayload struct {
	EmployerID string                    `json:"employer_id"`
	PaycheckID string                    `json:"paycheck_id"`
	PayRunID   string                    `json:"pay_run_id,omitempty"`
	Events     []domain.WithholdingEvent `json:"events"`
}

// PayloadFor builds the payload for a calculated paycheck.
func PayloadFor(r *domain.PaycheckResult) WithholdingPayload {
	return WithholdingPayload{
		EmployerID: r.EmployerID,
		PaycheckID: r.PaycheckID,
		PayRunID:   r.PayRunID,
		Events:     r.WithholdingEvents,
	}
}

// TaskID is the asynq task id for a payload; enqueueing the same paycheck twice while
// the first task is still retained is rejected by the broker.
func (p WithholdingPayload) TaskID() string {
	return fmt.Sprintf("withholding:%s:%s", p.EmployerID, p.PaycheckID)
}

// NewApplyWithholdingTask constructs the task for a payload.
func NewApplyWithholdingTask(payload WithholdingPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if payload.EmployerID == "" || payload.PaycheckID == "" {
		return nil, errors.New("jobs: withholding payload needs employer and paycheck ids")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	base := []asynq.Option{asynq.Queue(QueueLedger), asynq.TaskID(payload.TaskID())}
	return asynq.NewTask(TaskApplyWithholding, body, append(base, opts...)...), nil
}
