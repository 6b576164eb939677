package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"filippo.io/age"

	"garagem/internal/config"
	"garagem/internal/fsutil"
	"garagem/internal/garagem"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// AgeStore implements garagem.SecretStore using filippo.io/age with an
// X25519 identity kept on disk. Each secret lives in its own
// <secrets_dir>/<name>.age file.
type AgeStore struct {
	identityPath string
	secretsDir   string
}

var _ garagem.SecretStore = (*AgeStore)(nil)

// NewAgeStore creates a new AgeStore from configuration.
func NewAgeStore(cfg config.SecretsConfig) *AgeStore {
	return &AgeStore{
		identityPath: cfg.IdentityPath,
		secretsDir:   cfg.SecretsDir,
	}
}

// Setup generates a new X25519 identity and writes it with 0600
// permissions. Secrets encrypted to a previous identity become unreadable.
func (s *AgeStore) Setup() error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	content := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient(), identity)
	if err := os.WriteFile(s.identityPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

// IsConfigured returns true if the identity file exists.
func (s *AgeStore) IsConfigured() bool {
	_, err := os.Stat(s.identityPath)
	return err == nil
}

// Put encrypts value to the stored identity's recipient and writes it
// atomically.
func (s *AgeStore) Put(name, value string) error {
	path, err := s.secretPath(name)
	if err != nil {
		return err
	}
	identity, err := s.loadIdentity()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, value); err != nil {
		return fmt.Errorf("encrypting secret: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	if err := os.MkdirAll(s.secretsDir, 0700); err != nil {
		return fmt.Errorf("creating secrets directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing secret %s: %w", name, err)
	}
	return nil
}

// Get decrypts a stored secret. A secret that was never stored yields "".
func (s *AgeStore) Get(name string) (string, error) {
	path, err := s.secretPath(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", name, err)
	}

	identity, err := s.loadIdentity()
	if err != nil {
		return "", err
	}
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting secret %s: %w", name, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted secret %s: %w", name, err)
	}
	return string(plain), nil
}

func (s *AgeStore) secretPath(name string) (string, error) {
	if !validName.MatchString(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	return filepath.Join(s.secretsDir, name+".age"), nil
}

// loadIdentity reads the identity file and parses it.
func (s *AgeStore) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity (run setup first): %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity found in %s", s.identityPath)
}
