package garagem_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"garagem/internal/garagem"
	"garagem/internal/testutil"
)

// fakeEvaluator records triggers and signals every call on calls.
type fakeEvaluator struct {
	mu       sync.Mutex
	triggers []garagem.Trigger
	calls    chan garagem.Trigger
	block    chan struct{}
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{calls: make(chan garagem.Trigger, 16)}
}

func (e *fakeEvaluator) Evaluate(_ context.Context, trigger garagem.Trigger) *garagem.EvaluationReport {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	e.triggers = append(e.triggers, trigger)
	e.mu.Unlock()
	e.calls <- trigger
	return &garagem.EvaluationReport{Trigger: trigger}
}

func (e *fakeEvaluator) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.triggers)
}

func waitForCall(t *testing.T, e *fakeEvaluator, want garagem.Trigger) {
	t.Helper()
	select {
	case got := <-e.calls:
		if got != want {
			t.Fatalf("evaluation trigger = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q evaluation", want)
	}
}

func newTestScheduler(e garagem.Evaluator, timers *testutil.ManualTimers) *garagem.Scheduler {
	return garagem.NewScheduler(e, timers, testutil.FixedClock(), garagem.NewNopLogger(), nil,
		garagem.SchedulerOptions{CheckInterval: 30 * time.Minute, RecheckDelay: 3 * time.Second})
}

func TestScheduler_StartEvaluatesImmediatelyThenOnTicks(t *testing.T) {
	eval := newFakeEvaluator()
	timers := testutil.NewManualTimers()
	s := newTestScheduler(eval, timers)

	s.Start(context.Background())
	defer s.Stop()

	waitForCall(t, eval, garagem.TriggerStart)

	tickers := timers.Tickers()
	if len(tickers) != 1 {
		t.Fatalf("created %d tickers, want 1", len(tickers))
	}
	if tickers[0].Interval != 30*time.Minute {
		t.Errorf("ticker interval = %v, want 30m", tickers[0].Interval)
	}

	for i := 0; i < 2; i++ {
		if !tickers[0].Tick(time.Now()) {
			t.Fatal("tick was not received")
		}
		waitForCall(t, eval, garagem.TriggerTick)
	}

	st := s.Status()
	if !st.IsRunning {
		t.Error("IsRunning = false, want true")
	}
	if st.LastCheck.IsZero() || st.LastReport == nil {
		t.Errorf("Status() = %+v, want last check recorded", st)
	}
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	eval := newFakeEvaluator()
	timers := testutil.NewManualTimers()
	s := newTestScheduler(eval, timers)

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	waitForCall(t, eval, garagem.TriggerStart)
	s.Wait()

	if n := len(timers.Tickers()); n != 1 {
		t.Errorf("created %d tickers, want 1", n)
	}
	if n := eval.count(); n != 1 {
		t.Errorf("evaluated %d times, want 1", n)
	}
}

func TestScheduler_StopIsIdempotentAndStopsTicks(t *testing.T) {
	eval := newFakeEvaluator()
	timers := testutil.NewManualTimers()
	s := newTestScheduler(eval, timers)

	s.Stop() // stopped scheduler: no-op

	s.Start(context.Background())
	waitForCall(t, eval, garagem.TriggerStart)

	s.Stop()
	s.Stop()

	ticker := timers.Tickers()[0]
	if !ticker.Stopped() {
		t.Error("ticker not stopped")
	}
	if ticker.Tick(time.Now()) {
		t.Error("stopped ticker delivered a tick")
	}
	if s.Status().IsRunning {
		t.Error("IsRunning = true after Stop")
	}

	// Restart works after stop.
	s.Start(context.Background())
	defer s.Stop()
	waitForCall(t, eval, garagem.TriggerStart)
	if n := len(timers.Tickers()); n != 2 {
		t.Errorf("created %d tickers, want 2", n)
	}
}

func TestScheduler_StopDoesNotAbortInFlightEvaluation(t *testing.T) {
	eval := newFakeEvaluator()
	eval.block = make(chan struct{})
	s := newTestScheduler(eval, testutil.NewManualTimers())

	s.Start(context.Background())
	s.Stop()
	close(eval.block)

	waitForCall(t, eval, garagem.TriggerStart)
	s.Wait()
	if n := eval.count(); n != 1 {
		t.Errorf("evaluated %d times, want 1", n)
	}
}

func TestScheduler_ForceCheckNow(t *testing.T) {
	eval := newFakeEvaluator()
	timers := testutil.NewManualTimers()
	s := newTestScheduler(eval, timers)

	s.ForceCheckNow(context.Background())
	waitForCall(t, eval, garagem.TriggerForced)

	pending := timers.Pending()
	if len(pending) != 1 || pending[0] != 3*time.Second {
		t.Fatalf("pending rechecks = %v, want [3s]", pending)
	}
	if s.Status().IsRunning {
		t.Error("ForceCheckNow must not start the scheduler")
	}

	if n := timers.FirePending(); n != 1 {
		t.Fatalf("fired %d pending calls, want 1", n)
	}
	waitForCall(t, eval, garagem.TriggerRecheck)
	s.Wait()
}

func TestScheduler_ForceCheckNowKeepsRunningState(t *testing.T) {
	eval := newFakeEvaluator()
	timers := testutil.NewManualTimers()
	s := newTestScheduler(eval, timers)

	s.Start(context.Background())
	defer s.Stop()
	waitForCall(t, eval, garagem.TriggerStart)

	s.ForceCheckNow(context.Background())
	waitForCall(t, eval, garagem.TriggerForced)

	if !s.Status().IsRunning {
		t.Error("IsRunning = false after ForceCheckNow on running scheduler")
	}
}

func TestScheduler_StopCancelsPendingRecheck(t *testing.T) {
	eval := newFakeEvaluator()
	timers := testutil.NewManualTimers()
	s := newTestScheduler(eval, timers)

	s.ForceCheckNow(context.Background())
	waitForCall(t, eval, garagem.TriggerForced)

	s.Stop()

	if n := len(timers.Pending()); n != 0 {
		t.Errorf("%d rechecks still pending after Stop", n)
	}
	if n := timers.FirePending(); n != 0 {
		t.Errorf("fired %d calls after Stop, want 0", n)
	}
	s.Wait()
}

func TestScheduler_CheckNowIsSynchronous(t *testing.T) {
	eval := newFakeEvaluator()
	s := newTestScheduler(eval, testutil.NewManualTimers())

	report := s.CheckNow(context.Background())
	if report == nil || report.Trigger != garagem.TriggerManual {
		t.Fatalf("CheckNow() = %+v, want manual report", report)
	}
	if eval.count() != 1 {
		t.Errorf("evaluated %d times, want 1", eval.count())
	}
	if s.Status().LastReport != report {
		t.Error("Status().LastReport is not the CheckNow report")
	}
}

func TestScheduler_WithEngineSendsOncePerKind(t *testing.T) {
	store := testutil.NewFakeRecordStore(testutil.ScheduledOn("r1", "2025-06-10"))
	dispatcher := testutil.NewFakeDispatcher()
	clock := testutil.FixedClock()
	engine := garagem.NewReminderEngine(store, testutil.NewStubIdentity(testutil.TestUser()), dispatcher,
		testutil.NewTestLedger(), clock, garagem.NewNopLogger(), garagem.WithLocation(time.UTC))

	timers := testutil.NewManualTimers()
	s := garagem.NewScheduler(engine, timers, clock, garagem.NewNopLogger(), nil, garagem.SchedulerOptions{})

	s.Start(context.Background())
	s.ForceCheckNow(context.Background())
	timers.FirePending()
	s.Wait()
	ticker := timers.Tickers()[0]
	ticker.Tick(clock.Now())
	s.Stop()
	s.Wait()

	if got := dispatcher.SentFor("r1"); got != 1 {
		t.Errorf("r1 sent %d times, want 1", got)
	}
}
