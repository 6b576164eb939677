package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"garagem/internal/fsutil"
	"garagem/internal/garagem"
)

// FileLedger stores every entry in a single JSON object keyed by
// maintenance ID:
//
//	{"<maintenance id>": {"three_days_sent": true, ...}, ...}
//
// Every Put rewrites the whole file with an atomic write (temp file +
// rename), so the file is never left half written. A file that cannot be
// parsed is treated as empty and replaced on the next Put.
type FileLedger struct {
	path   string
	logger garagem.Logger
	mu     sync.Mutex
}

// NewFileLedger creates a ledger backed by the file at path. The parent
// directory is created if needed; the file itself is created on first Put.
func NewFileLedger(path string, logger garagem.Logger) (*FileLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileLedger{path: path, logger: logger}, nil
}

// Get returns the entry for maintenanceID, or a zero entry if absent.
func (l *FileLedger) Get(maintenanceID string) (garagem.ReminderRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return garagem.ReminderRecord{}, err
	}
	rec, ok := entries[maintenanceID]
	if !ok {
		return garagem.ReminderRecord{MaintenanceID: maintenanceID}, nil
	}
	rec.MaintenanceID = maintenanceID
	return rec, nil
}

// Put overwrites the entry for maintenanceID and flushes the file.
func (l *FileLedger) Put(maintenanceID string, record garagem.ReminderRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	record.MaintenanceID = maintenanceID
	entries[maintenanceID] = record
	return l.save(entries)
}

// ResetAll removes every entry.
func (l *FileLedger) ResetAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(map[string]garagem.ReminderRecord{})
}

// Count returns the number of stored entries.
func (l *FileLedger) Count() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (l *FileLedger) Close() error {
	return nil
}

// load reads the file. A missing or corrupt file yields an empty map.
func (l *FileLedger) load() (map[string]garagem.ReminderRecord, error) {
	entries := make(map[string]garagem.ReminderRecord)

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("ledger file is corrupt, starting empty", "path", l.path, "error", err)
		return make(map[string]garagem.ReminderRecord), nil
	}
	return entries, nil
}

// save writes entries using atomic write (temp file + rename).
func (l *FileLedger) save(entries map[string]garagem.ReminderRecord) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := fsutil.WriteFileAtomic(l.path, data, 0600); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}

var _ garagem.DedupLedger = (*FileLedger)(nil)
