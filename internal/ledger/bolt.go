package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"garagem/internal/garagem"
)

var bucketReminders = []byte("reminders")

// BoltLedger stores entries as JSON values in a bbolt bucket.
//
// bbolt locks the file for as long as it is open, and `serve` shares the
// file with short-lived CLI commands. The file is therefore opened for each
// call and closed again, read-only for Get and Count.
type BoltLedger struct {
	path string
}

// NewBoltLedger creates the bbolt file at path with its bucket, if missing.
func NewBoltLedger(path string) (*BoltLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	l := &BoltLedger{path: path}
	err := l.update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketReminders); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketReminders, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *BoltLedger) open(readOnly bool) (*bolt.DB, error) {
	db, err := bolt.Open(l.path, 0600, &bolt.Options{Timeout: defaultOpenTimeout, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	return db, nil
}

func (l *BoltLedger) view(fn func(tx *bolt.Tx) error) error {
	db, err := l.open(true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (l *BoltLedger) update(fn func(tx *bolt.Tx) error) error {
	db, err := l.open(false)
	if err != nil {
		return err
	}
	if err := db.Update(fn); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// Get returns the entry for maintenanceID, or a zero entry if absent.
func (l *BoltLedger) Get(maintenanceID string) (garagem.ReminderRecord, error) {
	rec := garagem.ReminderRecord{MaintenanceID: maintenanceID}
	err := l.view(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketReminders).Get([]byte(maintenanceID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return garagem.ReminderRecord{}, fmt.Errorf("reading reminder %s: %w", maintenanceID, err)
	}
	return rec, nil
}

// Put overwrites the entry for maintenanceID. bbolt fsyncs on commit.
func (l *BoltLedger) Put(maintenanceID string, record garagem.ReminderRecord) error {
	record.MaintenanceID = maintenanceID
	return l.update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketReminders).Put([]byte(maintenanceID), data)
	})
}

// ResetAll drops and recreates the bucket.
func (l *BoltLedger) ResetAll() error {
	return l.update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketReminders); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("deleting bucket: %w", err)
		}
		_, err := tx.CreateBucket(bucketReminders)
		return err
	})
}

// Count returns the number of stored entries.
func (l *BoltLedger) Count() (int, error) {
	n := 0
	err := l.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReminders).ForEach(func(k, v []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

// Close is a no-op; no handle outlives a call.
func (l *BoltLedger) Close() error {
	return nil
}

var _ garagem.DedupLedger = (*BoltLedger)(nil)
