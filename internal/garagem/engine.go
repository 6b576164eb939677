package garagem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Trigger names what started an evaluation cycle.
type Trigger string

const (
	TriggerStart   Trigger = "start"
	TriggerTick    Trigger = "tick"
	TriggerForced  Trigger = "forced"
	TriggerRecheck Trigger = "recheck"
	TriggerManual  Trigger = "manual"
)

// Reasons a cycle ends before fetching records.
const (
	SkipEmailNotConfigured = "email not configured"
	SkipNoUser             = "no user logged in"
	SkipNoEmail            = "user has no email"
)

// Cycle results, also used as the check run status.
const (
	ResultSkipped = "skipped"
	ResultOK      = "ok"
	ResultPartial = "partial"
	ResultError   = "error"
)

var ErrEmailNotConfigured = errors.New("email service is not configured")

// EvaluationReport describes one evaluation cycle.
type EvaluationReport struct {
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Skipped    string
	Evaluated  int
	Sent       int
	Failed     int
	Err        error
}

// Result summarizes the report as one of the Result* constants.
func (r *EvaluationReport) Result() string {
	switch {
	case r.Skipped != "":
		return ResultSkipped
	case r.Err != nil:
		return ResultError
	case r.Failed > 0:
		return ResultPartial
	}
	return ResultOK
}

// ReminderEngine decides which reminder emails are due and sends them.
// At most one cycle runs at a time per engine.
type ReminderEngine struct {
	store      RecordStore
	identity   IdentityProvider
	dispatcher EmailDispatcher
	ledger     DedupLedger
	clock      Clock
	logger     Logger

	location *time.Location
	recorder Recorder
	runs     CheckRunStore
	idgen    IDGenerator

	mu sync.Mutex
}

// EngineOption customizes a ReminderEngine.
type EngineOption func(*ReminderEngine)

// WithLocation sets the timezone used to decide what "today" is.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *ReminderEngine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithRecorder sends cycle metrics to r.
func WithRecorder(r Recorder) EngineOption {
	return func(e *ReminderEngine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithCheckRuns stores a CheckRun for every cycle that fetched records.
func WithCheckRuns(runs CheckRunStore, idgen IDGenerator) EngineOption {
	return func(e *ReminderEngine) {
		e.runs = runs
		e.idgen = idgen
	}
}

// NewReminderEngine creates a ReminderEngine with the provided dependencies.
func NewReminderEngine(store RecordStore, identity IdentityProvider, dispatcher EmailDispatcher, ledger DedupLedger, clock Clock, logger Logger, opts ...EngineOption) *ReminderEngine {
	e := &ReminderEngine{
		store:      store,
		identity:   identity,
		dispatcher: dispatcher,
		ledger:     ledger,
		clock:      clock,
		logger:     logger,
		location:   time.Local,
		recorder:   NopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateNow runs one cycle on behalf of a caller outside the scheduler.
func (e *ReminderEngine) EvaluateNow(ctx context.Context) *EvaluationReport {
	return e.Evaluate(ctx, TriggerManual)
}

// Evaluate runs one evaluation cycle. It never returns an error: failures
// are logged and reported in the returned EvaluationReport.
func (e *ReminderEngine) Evaluate(ctx context.Context, trigger Trigger) *EvaluationReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &EvaluationReport{Trigger: trigger, StartedAt: e.clock.Now()}
	fetched := e.evaluate(ctx, report)
	report.FinishedAt = e.clock.Now()

	e.recorder.CheckFinished(trigger, report.Result(), report.FinishedAt.Sub(report.StartedAt).Seconds())
	if fetched {
		e.saveRun(report)
	}

	if report.Skipped != "" {
		e.logger.Debug("reminder check skipped", "trigger", trigger, "reason", report.Skipped)
	} else {
		e.logger.Info("reminder check finished", "trigger", trigger, "evaluated", report.Evaluated,
			"sent", report.Sent, "failed", report.Failed, "result", report.Result())
	}
	return report
}

// evaluate fills in the report. It returns false when the cycle ended
// before the record fetch.
func (e *ReminderEngine) evaluate(ctx context.Context, report *EvaluationReport) bool {
	if !e.dispatcher.IsConfigured() {
		report.Skipped = SkipEmailNotConfigured
		return false
	}

	user, err := e.identity.CurrentUser(ctx)
	if err != nil {
		e.logger.Warn("looking up current user failed", "error", err)
		report.Skipped = SkipNoUser
		report.Err = err
		return false
	}
	if user == nil {
		report.Skipped = SkipNoUser
		return false
	}
	if user.Email == "" {
		report.Skipped = SkipNoEmail
		return false
	}

	records, err := e.store.ListMaintenanceByUser(ctx, user.ID)
	if err != nil {
		e.logger.Error("fetching maintenance records failed", "user", user.ID, "error", err)
		report.Err = fmt.Errorf("fetching maintenance records: %w", err)
		return true
	}

	for _, record := range records {
		if record.Kind != MaintenanceScheduled {
			continue
		}
		report.Evaluated++
		e.evaluateRecord(ctx, user, record, report)
	}
	return true
}

// evaluateRecord handles one scheduled record. Errors stay local to the
// record so the rest of the batch is still evaluated.
func (e *ReminderEngine) evaluateRecord(ctx context.Context, user *User, record *MaintenanceRecord, report *EvaluationReport) {
	now := report.StartedAt
	days := DaysUntilDue(now, record.DueDate, e.location)
	if days < 0 {
		return
	}

	entry, err := e.ledger.Get(record.ID)
	if err != nil {
		e.logger.Error("reading reminder ledger failed", "maintenance", record.ID, "error", err)
		report.Failed++
		return
	}
	entry.MaintenanceID = record.ID

	if kind, ok := classify(days); ok && !entry.Sent(kind) {
		if err := e.dispatcher.SendReminder(ctx, record, user.Email, user.DisplayName); err != nil {
			e.logger.Warn("sending reminder failed", "maintenance", record.ID, "kind", kind, "error", err)
			e.recorder.ReminderFailed(kind)
			report.Failed++
		} else {
			entry.MarkSent(kind)
			e.recorder.ReminderSent(kind)
			report.Sent++
			e.logger.Info("reminder sent", "maintenance", record.ID, "kind", kind, "to", user.Email)
		}
	}

	entry.LastChecked = now
	if err := e.ledger.Put(record.ID, entry); err != nil {
		e.logger.Error("writing reminder ledger failed", "maintenance", record.ID, "error", err)
		report.Failed++
	}
}

// classify maps days-until-due to the reminder that is due, if any.
func classify(days int) (ReminderKind, bool) {
	switch days {
	case 3:
		return ReminderThreeDays, true
	case 0:
		return ReminderDayOf, true
	}
	return "", false
}

func (e *ReminderEngine) saveRun(report *EvaluationReport) {
	if e.runs == nil {
		return
	}
	run := &CheckRun{
		ID:         e.idgen.New(),
		Trigger:    string(report.Trigger),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Evaluated:  report.Evaluated,
		Sent:       report.Sent,
		Failed:     report.Failed,
		Status:     report.Result(),
	}
	if report.Err != nil {
		run.Error = report.Err.Error()
	}
	if err := e.runs.CreateCheckRun(run); err != nil {
		e.logger.Warn("recording check run failed", "error", err)
	}
}

// ResetLedger forgets every sent reminder.
func (e *ReminderEngine) ResetLedger() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ledger.ResetAll(); err != nil {
		return fmt.Errorf("resetting reminder ledger: %w", err)
	}
	e.logger.Info("reminder ledger reset")
	return nil
}

// SendTestReminder sends a sample reminder to the current user. The ledger
// is neither read nor written.
func (e *ReminderEngine) SendTestReminder(ctx context.Context) error {
	if !e.dispatcher.IsConfigured() {
		return ErrEmailNotConfigured
	}
	user, err := e.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("looking up current user: %w", err)
	}
	if user == nil || user.Email == "" {
		return ErrNotLoggedIn
	}

	now := e.clock.Now().In(e.location)
	sample := &MaintenanceRecord{
		ID:          "test",
		UserID:      user.ID,
		VehicleName: "Veículo de teste",
		Kind:        MaintenanceScheduled,
		DueDate:     DateOf(now).AddDays(3).In(e.location),
		Title:       "Lembrete de teste",
		Items: []MaintenanceItem{
			{Description: "Troca de óleo", Cost: decimal.NewFromInt(150)},
			{Description: "Filtro de ar", Cost: decimal.NewFromInt(45)},
		},
		Notes:     "Este é um email de teste do sistema de lembretes.",
		CreatedAt: now,
	}
	sample.TotalCost = sample.ItemsTotal()

	if err := e.dispatcher.SendReminder(ctx, sample, user.Email, user.DisplayName); err != nil {
		return fmt.Errorf("sending test reminder: %w", err)
	}
	e.logger.Info("test reminder sent", "to", user.Email)
	return nil
}
