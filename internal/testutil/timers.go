package testutil

import (
	"sync"
	"time"

	"garagem/internal/garagem"
)

// ManualTimers hands out tickers and delayed calls that only fire when the
// test says so.
type ManualTimers struct {
	mu      sync.Mutex
	tickers []*ManualTicker
	pending []*pendingCall
}

type pendingCall struct {
	delay    time.Duration
	f        func()
	canceled bool
	fired    bool
}

func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

func (m *ManualTimers) NewTicker(d time.Duration) garagem.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &ManualTicker{Interval: d, c: make(chan time.Time)}
	m.tickers = append(m.tickers, t)
	return t
}

func (m *ManualTimers) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := &pendingCall{delay: d, f: f}
	m.pending = append(m.pending, call)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if call.fired || call.canceled {
			return false
		}
		call.canceled = true
		return true
	}
}

// Tickers returns every ticker created so far.
func (m *ManualTimers) Tickers() []*ManualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ManualTicker(nil), m.tickers...)
}

// Pending returns the delays of calls that have neither fired nor been
// canceled.
func (m *ManualTimers) Pending() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var delays []time.Duration
	for _, c := range m.pending {
		if !c.fired && !c.canceled {
			delays = append(delays, c.delay)
		}
	}
	return delays
}

// FirePending runs every pending call in the calling goroutine and returns
// how many ran.
func (m *ManualTimers) FirePending() int {
	m.mu.Lock()
	var due []*pendingCall
	for _, c := range m.pending {
		if !c.fired && !c.canceled {
			c.fired = true
			due = append(due, c)
		}
	}
	m.pending = nil
	m.mu.Unlock()

	for _, c := range due {
		c.f()
	}
	return len(due)
}

// ManualTicker is a ticker driven by Tick.
type ManualTicker struct {
	Interval time.Duration

	mu      sync.Mutex
	stopped bool
	c       chan time.Time
}

func (t *ManualTicker) C() <-chan time.Time { return t.c }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Tick delivers a tick, blocking until the receiver takes it. It returns
// false without blocking when the ticker is stopped, and gives up after
// one second.
func (t *ManualTicker) Tick(now time.Time) bool {
	if t.Stopped() {
		return false
	}
	select {
	case t.c <- now:
		return true
	case <-time.After(time.Second):
		return false
	}
}
