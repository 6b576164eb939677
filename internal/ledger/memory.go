package ledger

import (
	"sync"

	"garagem/internal/garagem"
)

// MemoryLedger keeps reminder flags in memory. Entries are lost on restart,
// so it is meant for tests and one-off CLI runs.
// This implementation is safe for concurrent use.
type MemoryLedger struct {
	entries map[string]garagem.ReminderRecord
	mu      sync.RWMutex
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]garagem.ReminderRecord)}
}

// Get returns the entry for maintenanceID, or a zero entry if absent.
func (m *MemoryLedger) Get(maintenanceID string) (garagem.ReminderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.entries[maintenanceID]
	if !ok {
		return garagem.ReminderRecord{MaintenanceID: maintenanceID}, nil
	}
	return rec, nil
}

// Put overwrites the entry for maintenanceID.
func (m *MemoryLedger) Put(maintenanceID string, record garagem.ReminderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.MaintenanceID = maintenanceID
	m.entries[maintenanceID] = record
	return nil
}

// ResetAll removes every entry.
func (m *MemoryLedger) ResetAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]garagem.ReminderRecord)
	return nil
}

// Count returns the number of stored entries.
func (m *MemoryLedger) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MemoryLedger) Close() error {
	return nil
}

// Compile-time check that MemoryLedger implements garagem.DedupLedger
var _ garagem.DedupLedger = (*MemoryLedger)(nil)
