package ledger

import (
	"fmt"
	"time"

	"garagem/internal/config"
	"garagem/internal/garagem"
)

const defaultOpenTimeout = 2 * time.Second

// NewLedgerFromConfig creates a DedupLedger based on the ledger config type.
func NewLedgerFromConfig(cfg config.LedgerConfig, logger garagem.Logger) (garagem.DedupLedger, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryLedger(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file ledger requires path to be set")
		}
		l, err := NewFileLedger(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "bolt":
		if cfg.Path == "" {
			return nil, fmt.Errorf("bolt ledger requires path to be set")
		}
		l, err := NewBoltLedger(cfg.Path)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
