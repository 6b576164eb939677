package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"garagem/internal/garagem"
	"garagem/internal/testutil"
)

func newTestProvider(t *testing.T) (*SessionProvider, garagem.Database) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	user := &garagem.User{ID: "user-1", Email: "ana@example.com", DisplayName: "Ana", CreatedAt: time.Now()}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "session.toml")
	return NewSessionProvider(path, db, garagem.NewNopLogger()), db
}

func TestSessionProvider_NoSession(t *testing.T) {
	p, _ := newTestProvider(t)
	user, err := p.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user != nil {
		t.Errorf("CurrentUser() = %+v, want nil", user)
	}
}

func TestSessionProvider_LoginLogout(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.Login("  ANA@example.com "); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	user, err := p.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Fatalf("CurrentUser() = %+v, want user-1", user)
	}

	// A second provider on the same file sees the session.
	other := NewSessionProvider(p.path, p.database, garagem.NewNopLogger())
	if u, _ := other.CurrentUser(ctx); u == nil || u.ID != "user-1" {
		t.Errorf("second provider CurrentUser() = %+v, want user-1", u)
	}

	if err := p.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if u, _ := p.CurrentUser(ctx); u != nil {
		t.Errorf("CurrentUser() after Logout = %+v, want nil", u)
	}
	if err := p.Logout(); err != nil {
		t.Errorf("second Logout() error = %v", err)
	}
}

func TestSessionProvider_UnknownEmail(t *testing.T) {
	p, _ := newTestProvider(t)
	if _, err := p.Login("nobody@example.com"); !errors.Is(err, ErrUnknownEmail) {
		t.Errorf("Login() error = %v, want ErrUnknownEmail", err)
	}
	if _, err := os.Stat(p.path); !os.IsNotExist(err) {
		t.Error("failed Login() wrote a session file")
	}
}

func TestSessionProvider_MissingUser(t *testing.T) {
	p, _ := newTestProvider(t)
	if err := os.WriteFile(p.path, []byte("user_id = \"ghost\"\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	user, err := p.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user != nil {
		t.Errorf("CurrentUser() = %+v, want nil for vanished user", user)
	}
}

func TestSessionProvider_CorruptFile(t *testing.T) {
	p, _ := newTestProvider(t)
	if err := os.WriteFile(p.path, []byte("user_id = [not toml"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := p.CurrentUser(context.Background()); err == nil {
		t.Error("CurrentUser() with corrupt session file returned nil error")
	}
}
