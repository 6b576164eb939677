package testutil

import (
	"context"
	"sync"
	"time"

	"garagem/internal/garagem"
)

// FakeRecordStore serves maintenance records from memory and counts fetches.
type FakeRecordStore struct {
	mu      sync.Mutex
	records []*garagem.MaintenanceRecord
	err     error
	fetches int
}

func NewFakeRecordStore(records ...*garagem.MaintenanceRecord) *FakeRecordStore {
	return &FakeRecordStore{records: records}
}

func (s *FakeRecordStore) ListMaintenanceByUser(_ context.Context, userID string) ([]*garagem.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	var out []*garagem.MaintenanceRecord
	for _, r := range s.records {
		if r.UserID == userID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

// Add appends records.
func (s *FakeRecordStore) Add(records ...*garagem.MaintenanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// SetError makes every fetch fail with err until cleared with nil.
func (s *FakeRecordStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fetches counts ListMaintenanceByUser calls.
func (s *FakeRecordStore) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// ScheduledOn builds a scheduled record for user-1 due at midnight UTC of
// the given YYYY-MM-DD day.
func ScheduledOn(id, day string) *garagem.MaintenanceRecord {
	d, err := garagem.ParseDate(day)
	if err != nil {
		panic(err)
	}
	return &garagem.MaintenanceRecord{
		ID:          id,
		UserID:      "user-1",
		VehicleID:   "vehicle-1",
		VehicleName: "Fiat Uno",
		Kind:        garagem.MaintenanceScheduled,
		DueDate:     d.In(time.UTC),
		Title:       "Revisão " + id,
	}
}
