package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"garagem/internal/config"
	"garagem/internal/database"
	"garagem/internal/email"
	"garagem/internal/garagem"
	"garagem/internal/identity"
	"garagem/internal/ledger"
	"garagem/internal/metrics"
	"garagem/internal/secrets"
)

// GarageApp is the application layer between the CLI and GarageService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string inputs, and closes the database and ledger on Close.
type GarageApp struct {
	cfg        *config.Config
	db         garagem.Database
	ledger     garagem.DedupLedger
	secrets    *secrets.AgeStore
	sessions   *identity.SessionProvider
	dispatcher garagem.EmailDispatcher
	engine     *garagem.ReminderEngine
	scheduler  *garagem.Scheduler
	service    *garagem.GarageService
	logger     garagem.Logger
	clock      garagem.Clock
	op         *Operation
	logFile    *os.File
}

type appOptions struct {
	clock  garagem.Clock
	timers garagem.Timers
	stderr io.Writer
}

// Option overrides a runtime dependency, mostly for tests.
type Option func(*appOptions)

// WithClock replaces the wall clock.
func WithClock(c garagem.Clock) Option {
	return func(o *appOptions) { o.clock = c }
}

// WithTimers replaces the scheduler's tickers and delayed functions.
func WithTimers(t garagem.Timers) Option {
	return func(o *appOptions) { o.timers = t }
}

// WithStderr redirects the console half of the log.
func WithStderr(w io.Writer) Option {
	return func(o *appOptions) { o.stderr = w }
}

// NewGarageApp creates a fully wired GarageApp from the given config.
// operation identifies the CLI command being run (e.g. "AddMaintenance", "Serve").
// The caller must call Close when done.
func NewGarageApp(cfg *config.Config, operation string, opts ...Option) (*GarageApp, error) {
	o := appOptions{clock: garagem.RealClock{}, timers: garagem.RealTimers{}, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, err
	}
	checkInterval, recheckDelay, err := cfg.Reminder.Intervals()
	if err != nil {
		return nil, err
	}

	op := NewOperation(operation, o.clock.Now())
	slogger, logFile, err := newLogger(cfg.LogDir, op.RunID, o.stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	db, err := database.NewDatabaseFromConfig(cfg.Database, loc)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if m, ok := db.(interface{ CheckMigrations() error }); ok {
		if err := m.CheckMigrations(); err != nil {
			db.Close()
			logFile.Close()
			return nil, fmt.Errorf("database schema out of date: %w", err)
		}
	}

	dl, err := ledger.NewLedgerFromConfig(cfg.Ledger, logger)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating reminder ledger: %w", err)
	}

	store := secrets.NewAgeStore(cfg.Secrets)
	dispatcher, err := email.NewDispatcherFromConfig(cfg.Email, store, o.clock, logger)
	if err != nil {
		dl.Close()
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating email dispatcher: %w", err)
	}

	sessions := identity.NewSessionProvider(SessionPath(cfg.BaseDir), db, logger)
	idgen := garagem.UUIDGenerator{}
	recorder := metrics.Recorder{}

	engine := garagem.NewReminderEngine(db, sessions, dispatcher, dl, o.clock, logger,
		garagem.WithLocation(loc),
		garagem.WithRecorder(recorder),
		garagem.WithCheckRuns(db, idgen))
	scheduler := garagem.NewScheduler(engine, o.timers, o.clock, logger, recorder, garagem.SchedulerOptions{
		CheckInterval: checkInterval,
		RecheckDelay:  recheckDelay,
	})
	svc := garagem.NewGarageService(db, sessions, logger, o.clock, idgen, loc)

	a := &GarageApp{
		cfg:        cfg,
		db:         db,
		ledger:     dl,
		secrets:    store,
		sessions:   sessions,
		dispatcher: dispatcher,
		engine:     engine,
		scheduler:  scheduler,
		service:    svc,
		logger:     logger,
		clock:      o.clock,
		op:         op,
		logFile:    logFile,
	}
	svc.OnScheduledSave(a.onScheduledSave)
	return a, nil
}

// onScheduledSave re-evaluates reminders after a scheduled maintenance is
// saved. A running scheduler handles it in the background with a recheck;
// otherwise the evaluation runs before the command returns.
func (a *GarageApp) onScheduledSave(ctx context.Context) {
	if a.scheduler.Status().IsRunning {
		a.scheduler.ForceCheckNow(ctx)
		return
	}
	a.engine.Evaluate(ctx, garagem.TriggerForced)
}

// Fail marks the current operation as failed in the log.
func (a *GarageApp) Fail() {
	a.op.Fail()
}

// Close stops the scheduler, waits for running evaluations and closes all
// resources.
func (a *GarageApp) Close() error {
	var firstErr error

	a.scheduler.Stop()
	a.scheduler.Wait()

	if err := a.ledger.Close(); err != nil {
		firstErr = fmt.Errorf("closing reminder ledger: %w", err)
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.op.finish(a.logger, a.clock.Now())
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// RegisterUser creates a new account.
func (a *GarageApp) RegisterUser(email, displayName string) (*garagem.User, error) {
	return a.service.RegisterUser(email, displayName)
}

// Login starts a session for the user with the given email.
func (a *GarageApp) Login(email string) (*garagem.User, error) {
	return a.sessions.Login(email)
}

// Logout ends the current session.
func (a *GarageApp) Logout() error {
	return a.sessions.Logout()
}

// WhoAmI returns the logged-in user.
func (a *GarageApp) WhoAmI(ctx context.Context) (*garagem.User, error) {
	return a.service.CurrentUser(ctx)
}

// Location is the timezone used for due dates.
func (a *GarageApp) Location() string {
	return a.service.Location().String()
}
