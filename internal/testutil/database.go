package testutil

import (
	"testing"
	"time"

	"garagem/internal/database"
	"garagem/internal/garagem"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations
// applied. Dates load as UTC. The database is closed when the test completes.
func NewTestDatabase(t *testing.T) garagem.Database {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", time.UTC)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
