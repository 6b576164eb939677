package testutil

import (
	"context"
	"errors"
	"sync"

	"garagem/internal/garagem"
)

// SentReminder is one call recorded by FakeDispatcher.
type SentReminder struct {
	MaintenanceID string
	Title         string
	ToEmail       string
	ToName        string
}

// FakeDispatcher records reminders instead of sending them.
type FakeDispatcher struct {
	mu         sync.Mutex
	configured bool
	failFor    map[string]error
	sent       []SentReminder
	attempts   int
}

// NewFakeDispatcher returns a configured dispatcher that accepts every send.
func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{configured: true, failFor: make(map[string]error)}
}

// SetConfigured toggles IsConfigured.
func (d *FakeDispatcher) SetConfigured(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = ok
}

// FailFor makes sends for the given maintenance fail. A nil err clears it.
func (d *FakeDispatcher) FailFor(maintenanceID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failFor, maintenanceID)
		return
	}
	d.failFor[maintenanceID] = err
}

func (d *FakeDispatcher) IsConfigured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

func (d *FakeDispatcher) SendReminder(_ context.Context, record *garagem.MaintenanceRecord, toEmail, toName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if err, ok := d.failFor[record.ID]; ok {
		return err
	}
	if !d.configured {
		return errors.New("dispatcher not configured")
	}
	d.sent = append(d.sent, SentReminder{
		MaintenanceID: record.ID,
		Title:         record.Title,
		ToEmail:       toEmail,
		ToName:        toName,
	})
	return nil
}

// Sent returns every accepted reminder in order.
func (d *FakeDispatcher) Sent() []SentReminder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SentReminder(nil), d.sent...)
}

// SentFor counts accepted reminders for one maintenance.
func (d *FakeDispatcher) SentFor(maintenanceID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sent {
		if s.MaintenanceID == maintenanceID {
			n++
		}
	}
	return n
}

// Attempts counts every SendReminder call, failed ones included.
func (d *FakeDispatcher) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}
