package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"garagem/internal/config"
)

func newTestAgeStore(t *testing.T) *AgeStore {
	t.Helper()
	dir := t.TempDir()
	return NewAgeStore(config.SecretsConfig{
		IdentityPath: filepath.Join(dir, "keys", "garagem.key"),
		SecretsDir:   filepath.Join(dir, "secrets"),
	})
}

func TestAgeStore_IsConfigured(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)

	if s.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !s.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}

	info, err := os.Stat(s.identityPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("identity permissions = %o, want 600", perm)
	}
}

func TestAgeStore_PutGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{name: "emailjs_private_key", value: "pk_live_abcdefghijkl"},
		{name: "empty", value: ""},
		{name: "unicode", value: "senha-ção-🚗"},
	}

	s := newTestAgeStore(t)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Put(tt.name, tt.value); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, err := s.Get(tt.name)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestAgeStore_CiphertextOnDisk(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := s.Put("token", "very-secret-value"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.secretsDir, "token.age"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(data), "very-secret-value") {
		t.Error("secret stored in plaintext")
	}
}

func TestAgeStore_Overwrite(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	for _, v := range []string{"first", "second"} {
		if err := s.Put("key", v); err != nil {
			t.Fatalf("Put(%q) error = %v", v, err)
		}
	}
	got, err := s.Get("key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}

	entries, _ := os.ReadDir(s.secretsDir)
	if len(entries) != 1 {
		t.Errorf("secrets dir has %d entries, want 1 (temp files left behind?)", len(entries))
	}
}

func TestAgeStore_MissingSecret(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)

	// No identity is needed to learn that nothing is stored.
	got, err := s.Get("nothing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get() = %q, want empty", got)
	}
}

func TestAgeStore_PutWithoutSetup(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)
	if err := s.Put("key", "value"); err == nil {
		t.Error("Put() before Setup should fail")
	}
}

func TestAgeStore_WrongIdentity(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := s.Put("key", "value"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Setup(); err != nil {
		t.Fatalf("second Setup() error = %v", err)
	}
	if _, err := s.Get("key"); err == nil {
		t.Error("Get() with a regenerated identity should fail")
	}
}

func TestAgeStore_InvalidName(t *testing.T) {
	t.Parallel()
	s := newTestAgeStore(t)
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if _, err := s.Get(name); err == nil {
			t.Errorf("Get(%q) expected error", name)
		}
	}
}
