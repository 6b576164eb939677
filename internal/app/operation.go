package app

import (
	"time"

	"garagem/internal/garagem"
)

// Operation tracks the CLI command or server run a GarageApp was opened
// for. Its RunID tags every log line of the process.
type Operation struct {
	Name      string
	RunID     string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation creates an operation that started at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		Name:      name,
		RunID:     now.UTC().Format("20060102T150405Z"),
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// finish logs the outcome and duration of the operation.
func (op *Operation) finish(logger garagem.Logger, now time.Time) {
	d := now.Sub(op.StartedAt).Truncate(time.Millisecond)
	logger.Debug("operation finished", "operation", op.Name, "status", op.Status, "duration", d.String())
}
