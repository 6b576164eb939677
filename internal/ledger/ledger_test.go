package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"garagem/internal/garagem"
)

// ledgerFactories builds each implementation backed by a fresh temp dir.
func ledgerFactories() map[string]func(t *testing.T) garagem.DedupLedger {
	return map[string]func(t *testing.T) garagem.DedupLedger{
		"memory": func(t *testing.T) garagem.DedupLedger {
			return NewMemoryLedger()
		},
		"file": func(t *testing.T) garagem.DedupLedger {
			l, err := NewFileLedger(filepath.Join(t.TempDir(), "reminders.json"), garagem.NewNopLogger())
			if err != nil {
				t.Fatalf("NewFileLedger() error = %v", err)
			}
			return l
		},
		"bolt": func(t *testing.T) garagem.DedupLedger {
			l, err := NewBoltLedger(filepath.Join(t.TempDir(), "reminders.db"))
			if err != nil {
				t.Fatalf("NewBoltLedger() error = %v", err)
			}
			t.Cleanup(func() { l.Close() })
			return l
		},
	}
}

func TestLedger_GetUnknown(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			l := newLedger(t)

			rec, err := l.Get("missing")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if rec.ThreeDaysSent || rec.DayOfSent {
				t.Errorf("Get() = %+v, want both flags false", rec)
			}
			if rec.MaintenanceID != "missing" {
				t.Errorf("MaintenanceID = %q, want %q", rec.MaintenanceID, "missing")
			}
		})
	}
}

func TestLedger_PutGet(t *testing.T) {
	checked := time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC)

	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			l := newLedger(t)

			want := garagem.ReminderRecord{ThreeDaysSent: true, LastChecked: checked}
			if err := l.Put("m1", want); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			// Putting the same flags twice is indistinguishable from once.
			if err := l.Put("m1", want); err != nil {
				t.Fatalf("second Put() error = %v", err)
			}

			got, err := l.Get("m1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.ThreeDaysSent || got.DayOfSent {
				t.Errorf("flags = (%v, %v), want (true, false)", got.ThreeDaysSent, got.DayOfSent)
			}
			if !got.LastChecked.Equal(checked) {
				t.Errorf("LastChecked = %v, want %v", got.LastChecked, checked)
			}

			n, err := l.Count()
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 1 {
				t.Errorf("Count() = %d, want 1", n)
			}
		})
	}
}

func TestLedger_ResetAll(t *testing.T) {
	for name, newLedger := range ledgerFactories() {
		t.Run(name, func(t *testing.T) {
			l := newLedger(t)

			for _, id := range []string{"a", "b", "c"} {
				if err := l.Put(id, garagem.ReminderRecord{DayOfSent: true}); err != nil {
					t.Fatalf("Put(%s) error = %v", id, err)
				}
			}
			if err := l.ResetAll(); err != nil {
				t.Fatalf("ResetAll() error = %v", err)
			}

			n, err := l.Count()
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 0 {
				t.Errorf("Count() after reset = %d, want 0", n)
			}
			rec, _ := l.Get("a")
			if rec.DayOfSent {
				t.Error("DayOfSent still true after ResetAll")
			}
		})
	}
}

func TestFileLedger_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "reminders.json")

	l, err := NewFileLedger(path, garagem.NewNopLogger())
	if err != nil {
		t.Fatalf("NewFileLedger() error = %v", err)
	}
	if err := l.Put("m1", garagem.ReminderRecord{DayOfSent: true}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reopened, err := NewFileLedger(path, garagem.NewNopLogger())
	if err != nil {
		t.Fatalf("NewFileLedger() error = %v", err)
	}
	rec, err := reopened.Get("m1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !rec.DayOfSent {
		t.Error("DayOfSent not persisted")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("found %d files in ledger dir, want 1 (temp files left behind?)", len(entries))
	}
}

func TestFileLedger_CorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := NewFileLedger(path, garagem.NewNopLogger())
	if err != nil {
		t.Fatalf("NewFileLedger() error = %v", err)
	}

	rec, err := l.Get("m1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.ThreeDaysSent || rec.DayOfSent {
		t.Errorf("Get() = %+v, want zero flags", rec)
	}

	if err := l.Put("m1", garagem.ReminderRecord{ThreeDaysSent: true}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	rec, _ = l.Get("m1")
	if !rec.ThreeDaysSent {
		t.Error("Put() did not replace corrupt file")
	}
}

func TestBoltLedger_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.db")

	l, err := NewBoltLedger(path)
	if err != nil {
		t.Fatalf("NewBoltLedger() error = %v", err)
	}
	if err := l.Put("m1", garagem.ReminderRecord{ThreeDaysSent: true}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBoltLedger(path)
	if err != nil {
		t.Fatalf("NewBoltLedger() reopen error = %v", err)
	}
	defer reopened.Close()

	rec, err := reopened.Get("m1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !rec.ThreeDaysSent {
		t.Error("ThreeDaysSent not persisted")
	}
}
