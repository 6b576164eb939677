package testutil

import (
	"garagem/internal/garagem"
	"garagem/internal/ledger"
)

// NewTestLedger creates a new in-memory dedup ledger for testing.
func NewTestLedger() garagem.DedupLedger {
	return ledger.NewMemoryLedger()
}
