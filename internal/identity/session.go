package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"garagem/internal/fsutil"
	"garagem/internal/garagem"
)

// ErrUnknownEmail is returned by Login when no user has the address.
var ErrUnknownEmail = errors.New("no user registered with that email")

type session struct {
	UserID string `toml:"user_id"`
}

// SessionProvider remembers the logged-in user in a small TOML file so
// every CLI invocation and the serve process share one session.
type SessionProvider struct {
	path     string
	database garagem.Database
	logger   garagem.Logger

	mu sync.Mutex
}

var _ garagem.IdentityProvider = (*SessionProvider)(nil)

// NewSessionProvider creates a provider backed by the session file at path.
func NewSessionProvider(path string, database garagem.Database, logger garagem.Logger) *SessionProvider {
	return &SessionProvider{path: path, database: database, logger: logger}
}

// CurrentUser returns the logged-in user, or nil when there is no session
// or the session's user no longer exists.
func (p *SessionProvider) CurrentUser(_ context.Context) (*garagem.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.read()
	if err != nil {
		return nil, err
	}
	if s.UserID == "" {
		return nil, nil
	}
	user, err := p.database.FindUserByID(s.UserID)
	if err != nil {
		return nil, fmt.Errorf("finding session user: %w", err)
	}
	if user == nil {
		p.logger.Warn("session points to a missing user", "user", s.UserID)
	}
	return user, nil
}

// Login starts a session for the user registered with email.
func (p *SessionProvider) Login(email string) (*garagem.User, error) {
	user, err := p.database.FindUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownEmail
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(session{UserID: user.ID}); err != nil {
		return nil, err
	}
	p.logger.Info("logged in", "user", user.ID)
	return user, nil
}

// Logout ends the session. Logging out without a session is not an error.
func (p *SessionProvider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	p.logger.Info("logged out")
	return nil
}

func (p *SessionProvider) read() (session, error) {
	var s session
	_, err := toml.DecodeFile(p.path, &s)
	if errors.Is(err, fs.ErrNotExist) {
		return session{}, nil
	}
	if err != nil {
		return session{}, fmt.Errorf("reading session file: %w", err)
	}
	return s, nil
}

func (p *SessionProvider) write(s session) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := fsutil.WriteFileAtomic(p.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
