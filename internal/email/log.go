package email

import (
	"context"

	"garagem/internal/garagem"
)

// LogDispatcher writes reminders to the log instead of sending them.
// Useful for trying the scheduler without an EmailJS account.
type LogDispatcher struct {
	clock  garagem.Clock
	logger garagem.Logger
}

var _ garagem.EmailDispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(clock garagem.Clock, logger garagem.Logger) *LogDispatcher {
	return &LogDispatcher{clock: clock, logger: logger}
}

func (d *LogDispatcher) IsConfigured() bool { return true }

func (d *LogDispatcher) SendReminder(_ context.Context, record *garagem.MaintenanceRecord, toEmail, toName string) error {
	params := TemplateParams(record, toEmail, toName, d.clock.Now())
	args := make([]any, 0, 2*len(params))
	for _, k := range paramOrder {
		args = append(args, k, params[k])
	}
	d.logger.Info("reminder email (log only)", args...)
	return nil
}

var paramOrder = []string{
	"to_email", "to_name", "maintenance_title", "vehicle_name",
	"maintenance_date", "total_cost", "items_list", "notes", "current_year",
}

// NoopDispatcher is never configured, so reminder cycles are skipped.
type NoopDispatcher struct{}

var _ garagem.EmailDispatcher = NoopDispatcher{}

func (NoopDispatcher) IsConfigured() bool { return false }

func (NoopDispatcher) SendReminder(context.Context, *garagem.MaintenanceRecord, string, string) error {
	return garagem.ErrEmailNotConfigured
}
