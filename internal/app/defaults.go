package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates garagem's files. The config file lives on its own; the rest
// sits under BaseDir, laid out by config.NewConfig as:
//
//	db/garagem.db      records
//	reminders.db       sent-reminder ledger
//	session.toml       logged-in user
//	keys/garagem.key   age identity
//	secrets/*.age      encrypted secrets
//	log/garagem.log
type Paths struct {
	ConfigPath string
	BaseDir    string
}

// LogDir is the default log directory under BaseDir.
func (p Paths) LogDir() string {
	return filepath.Join(p.BaseDir, "log")
}

// SessionPath is the session file for the installation rooted at baseDir.
func SessionPath(baseDir string) string {
	return filepath.Join(baseDir, "session.toml")
}

// DefaultPaths resolves Paths from the environment, in order of precedence:
//   - config: GARAGEM_CONFIG_PATH, $XDG_CONFIG_HOME/garagem.toml, ~/.config/garagem.toml
//   - data:   GARAGEM_HOME, $XDG_DATA_HOME/garagem, ~/.local/share/garagem
func DefaultPaths() (Paths, error) {
	configPath, err := resolve("GARAGEM_CONFIG_PATH", "XDG_CONFIG_HOME", "garagem.toml", ".config")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := resolve("GARAGEM_HOME", "XDG_DATA_HOME", "garagem", ".local", "share")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// resolve returns $override, else $xdgVar/name, else ~/<homeRel...>/name.
func resolve(override, xdgVar, name string, homeRel ...string) (string, error) {
	if v := os.Getenv(override); v != "" {
		return v, nil
	}
	if v := os.Getenv(xdgVar); v != "" {
		return filepath.Join(v, name), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, homeRel...), name)...), nil
}
