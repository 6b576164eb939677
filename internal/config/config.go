package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for garagem.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Database DatabaseConfig `toml:"database"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Email    EmailConfig    `toml:"email"`
	Secrets  SecretsConfig  `toml:"secrets"`
	Reminder ReminderConfig `toml:"reminder"`
	HTTP     HTTPConfig     `toml:"http"`
}

// DatabaseConfig represents configuration for the record database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// LedgerConfig selects where sent-reminder flags are kept.
type LedgerConfig struct {
	Type string `toml:"type"`           // "memory", "file" or "bolt"
	Path string `toml:"path,omitempty"` // only used for type=file and type=bolt
}

// EmailConfig holds the transactional email credentials.
type EmailConfig struct {
	Type       string `toml:"type"` // "emailjs", "log" or "none"
	ServiceID  string `toml:"service_id,omitempty"`
	TemplateID string `toml:"template_id,omitempty"`
	PublicKey  string `toml:"public_key,omitempty"`
	Endpoint   string `toml:"endpoint,omitempty"`
	// PrivateKeySecret names the age-encrypted secret holding the EmailJS
	// private key. Empty means requests go without an access token.
	PrivateKeySecret string `toml:"private_key_secret,omitempty"`
}

// SecretsConfig holds paths for the age identity and encrypted secrets.
type SecretsConfig struct {
	IdentityPath string `toml:"identity_path"`
	SecretsDir   string `toml:"secrets_dir"`
}

// ReminderConfig tunes the reminder scheduler. Durations use
// time.ParseDuration syntax.
type ReminderConfig struct {
	CheckInterval string `toml:"check_interval"`
	RecheckDelay  string `toml:"recheck_delay"`
	Timezone      string `toml:"timezone"` // IANA name; empty or "Local" uses the system zone
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Listen         string   `toml:"listen"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
}

// Intervals parses CheckInterval and RecheckDelay. Empty values yield zero,
// which callers treat as "use the default".
func (r ReminderConfig) Intervals() (check, recheck time.Duration, err error) {
	if r.CheckInterval != "" {
		if check, err = time.ParseDuration(r.CheckInterval); err != nil {
			return 0, 0, fmt.Errorf("parsing check_interval: %w", err)
		}
	}
	if r.RecheckDelay != "" {
		if recheck, err = time.ParseDuration(r.RecheckDelay); err != nil {
			return 0, 0, fmt.Errorf("parsing recheck_delay: %w", err)
		}
	}
	return check, recheck, nil
}

// Location loads the configured timezone.
func (r ReminderConfig) Location() (*time.Location, error) {
	if r.Timezone == "" || r.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Ledger:   LedgerConfig{Type: "bolt", Path: filepath.Join(baseDir, "reminders.db")},
		Email: EmailConfig{
			Type:             "emailjs",
			Endpoint:         "https://api.emailjs.com/api/v1.0/email/send",
			PrivateKeySecret: "emailjs_private_key",
		},
		Secrets: SecretsConfig{
			IdentityPath: filepath.Join(baseDir, "keys", "garagem.key"),
			SecretsDir:   filepath.Join(baseDir, "secrets"),
		},
		Reminder: ReminderConfig{
			CheckInterval: "30m",
			RecheckDelay:  "3s",
			Timezone:      "Local",
		},
		HTTP: HTTPConfig{Listen: "127.0.0.1:8080"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// WriteToFile writes a Config to path, replacing any existing file.
func WriteToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := WriteToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
