package garagem

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultCheckInterval = 30 * time.Minute
	DefaultRecheckDelay  = 3 * time.Second
)

// Evaluator runs one reminder evaluation cycle.
type Evaluator interface {
	Evaluate(ctx context.Context, trigger Trigger) *EvaluationReport
}

// SchedulerOptions tunes the Scheduler cadence. Zero values use defaults.
type SchedulerOptions struct {
	CheckInterval time.Duration
	RecheckDelay  time.Duration
}

// Status is a snapshot of the scheduler for diagnostics.
type Status struct {
	IsRunning  bool
	LastCheck  time.Time
	LastReport *EvaluationReport
}

// Scheduler drives periodic evaluation while the application is active.
// It owns its ticker; Stop cancels future ticks but never an evaluation that
// is already running.
type Scheduler struct {
	evaluator Evaluator
	timers    Timers
	clock     Clock
	logger    Logger
	recorder  Recorder
	opts      SchedulerOptions

	mu         sync.Mutex
	ticker     Ticker
	done       chan struct{}
	rechecks   map[int]func() bool
	nextID     int
	lastCheck  time.Time
	lastReport *EvaluationReport

	inflight sync.WaitGroup
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(evaluator Evaluator, timers Timers, clock Clock, logger Logger, recorder Recorder, opts SchedulerOptions) *Scheduler {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.RecheckDelay <= 0 {
		opts.RecheckDelay = DefaultRecheckDelay
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Scheduler{
		evaluator: evaluator,
		timers:    timers,
		clock:     clock,
		logger:    logger,
		recorder:  recorder,
		opts:      opts,
		rechecks:  make(map[int]func() bool),
	}
}

// Start evaluates once right away and then on every CheckInterval.
// Calling Start on a running scheduler does nothing. Cancelling ctx does not
// stop the scheduler; call Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.ticker = s.timers.NewTicker(s.opts.CheckInterval)
	s.done = make(chan struct{})
	s.recorder.SchedulerRunning(true)
	s.logger.Info("reminder scheduler started", "interval", s.opts.CheckInterval.String())

	s.spawn(ctx, TriggerStart)
	go s.loop(ctx, s.ticker, s.done)
}

func (s *Scheduler) loop(ctx context.Context, ticker Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			s.inflight.Add(1)
			s.run(ctx, TriggerTick)
			s.inflight.Done()
		}
	}
}

// Stop cancels the ticker and any pending rechecks. Calling Stop on a
// stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cancel := range s.rechecks {
		cancel()
		delete(s.rechecks, id)
	}
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
	s.recorder.SchedulerRunning(false)
	s.logger.Info("reminder scheduler stopped")
}

// ForceCheckNow starts an evaluation right away and another one after
// RecheckDelay, for records whose writes may not be visible yet. It works
// whether or not the scheduler is running and does not change that state.
func (s *Scheduler) ForceCheckNow(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.spawn(ctx, TriggerForced)

	id := s.nextID
	s.nextID++
	s.inflight.Add(1)
	cancel := s.timers.AfterFunc(s.opts.RecheckDelay, func() {
		defer s.inflight.Done()
		s.mu.Lock()
		delete(s.rechecks, id)
		s.mu.Unlock()
		s.run(ctx, TriggerRecheck)
	})
	s.rechecks[id] = func() bool {
		if cancel() {
			s.inflight.Done()
			return true
		}
		return false
	}
}

// CheckNow runs one evaluation synchronously and returns its report.
func (s *Scheduler) CheckNow(ctx context.Context) *EvaluationReport {
	return s.run(ctx, TriggerManual)
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		IsRunning:  s.ticker != nil,
		LastCheck:  s.lastCheck,
		LastReport: s.lastReport,
	}
}

// Wait blocks until every evaluation started by the scheduler has finished,
// including rechecks that are still pending.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// spawn runs an evaluation in its own goroutine. Callers hold s.mu.
func (s *Scheduler) spawn(ctx context.Context, trigger Trigger) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.run(ctx, trigger)
	}()
}

func (s *Scheduler) run(ctx context.Context, trigger Trigger) *EvaluationReport {
	report := s.evaluator.Evaluate(ctx, trigger)

	s.mu.Lock()
	s.lastCheck = s.clock.Now()
	s.lastReport = report
	s.mu.Unlock()
	return report
}
