package accountclient

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sessionVersion = 1

var (
	// ErrNoSession is returned by SessionStore.Load when nobody is logged in.
	ErrNoSession = errors.New("no session")

	// ErrSessionVersion is returned for session files written by an incompatible version.
	ErrSessionVersion = errors.New("unsupported session file version")
)

// Session is the persisted login state of the CLI.
type Session struct {
	Version  int    `yaml:"version"`
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

// SessionStoreConfig holds configuration for the session store.
type SessionStoreConfig struct {
	// SessionFile is the path of the session file. Empty selects
	// <user config dir>/accountdash/session.yaml.
	SessionFile string `env:"SESSION_FILE" default:""`
}

// SessionStore persists the session between CLI invocations.
type SessionStore struct {
	path string
}

// NewSessionStore creates a SessionStore for the configured file.
func NewSessionStore(cfg SessionStoreConfig) (*SessionStore, error) {
	path := cfg.SessionFile
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("user config dir: %w", err)
		}

		path = filepath.Join(dir, "accountdash", "session.yaml")
	}

	return &SessionStore{path: path}, nil
}

// Path returns the session file location.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session. Returns ErrNoSession if the file does not exist.
func (s *SessionStore) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	} else if err != nil {
		return Session{}, fmt.Errorf("read session file: %w", err)
	}

	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("parse session file: %w", err)
	}

	if session.Version != sessionVersion {
		return Session{}, fmt.Errorf("%w: %d", ErrSessionVersion, session.Version)
	}

	if session.Token == "" {
		return Session{}, ErrNoSession
	}

	return session, nil
}

// Save writes the session atomically with mode 0600.
func (s *SessionStore) Save(session Session) error {
	session.Version = sessionVersion

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("rename session file: %w", err)
	}

	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	return nil
}
