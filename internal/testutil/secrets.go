package testutil

import (
	"sync"

	"garagem/internal/garagem"
)

// MemorySecrets keeps secrets in a map.
type MemorySecrets struct {
	mu      sync.Mutex
	secrets map[string]string
}

var _ garagem.SecretStore = (*MemorySecrets)(nil)

func NewMemorySecrets() *MemorySecrets {
	return &MemorySecrets{secrets: make(map[string]string)}
}

func (s *MemorySecrets) Get(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets[name], nil
}

func (s *MemorySecrets) Put(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
	return nil
}

func (s *MemorySecrets) IsConfigured() bool { return true }
