package app

import (
	"context"
	"fmt"

	"garagem/internal/garagem"
)

// ReminderStatus is what `reminders status` prints.
type ReminderStatus struct {
	EmailType       string
	EmailConfigured bool
	SecretsReady    bool
	User            *garagem.User
	LedgerEntries   int
	CheckInterval   string
	Timezone        string
	LastRun         *garagem.CheckRun
}

// CheckReminders runs one evaluation cycle now.
func (a *GarageApp) CheckReminders(ctx context.Context) *garagem.EvaluationReport {
	return a.scheduler.CheckNow(ctx)
}

// ReminderStatus gathers reminder diagnostics.
func (a *GarageApp) ReminderStatus(ctx context.Context) (*ReminderStatus, error) {
	st := &ReminderStatus{
		EmailType:       a.cfg.Email.Type,
		EmailConfigured: a.dispatcher.IsConfigured(),
		SecretsReady:    a.secrets.IsConfigured(),
		CheckInterval:   a.cfg.Reminder.CheckInterval,
		Timezone:        a.service.Location().String(),
	}

	user, err := a.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	st.User = user

	n, err := a.ledger.Count()
	if err != nil {
		return nil, fmt.Errorf("counting ledger entries: %w", err)
	}
	st.LedgerEntries = n

	runs, err := a.service.GetHistory(1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		st.LastRun = runs[0]
	}
	return st, nil
}

// ResetReminders forgets every sent reminder so they can be sent again.
func (a *GarageApp) ResetReminders() error {
	return a.engine.ResetLedger()
}

// SendTestReminder emails a sample reminder to the current user.
func (a *GarageApp) SendTestReminder(ctx context.Context) error {
	return a.engine.SendTestReminder(ctx)
}

// ReminderHistory returns recent evaluation cycles.
func (a *GarageApp) ReminderHistory(limit int) ([]*garagem.CheckRun, error) {
	return a.service.GetHistory(limit)
}

// SetEmailPrivateKey stores the EmailJS private key encrypted at rest,
// creating the age identity on first use.
func (a *GarageApp) SetEmailPrivateKey(value string) error {
	name := a.cfg.Email.PrivateKeySecret
	if name == "" {
		return fmt.Errorf("email.private_key_secret is not set in the config")
	}
	if !a.secrets.IsConfigured() {
		if err := a.secrets.Setup(); err != nil {
			return fmt.Errorf("setting up secrets: %w", err)
		}
		a.logger.Info("secrets identity created")
	}
	if err := a.secrets.Put(name, value); err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	a.logger.Info("email private key stored", "secret", name)
	return nil
}
