package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is the operator's remembered UI state: which conversation and
// status tab were open when the console last exited.
type Session struct {
	// ChatID is the last open conversation.
	ChatID string `yaml:"chat,omitempty"`
	// ChatTitle is the human-readable name (for display before reload).
	ChatTitle string `yaml:"chat_title,omitempty"`
	// StatusTab is the last active chat-list filter.
	StatusTab string `yaml:"status_tab,omitempty"`
	// UpdatedAt is when the session was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if nothing was remembered.
func (s *Session) IsEmpty() bool {
	return s.ChatID == "" && s.StatusTab == ""
}

// SetChat records the open conversation.
func (s *Session) SetChat(id, title string) {
	s.ChatID = id
	s.ChatTitle = title
	s.UpdatedAt = time.Now()
}

// SetStatusTab records the active list filter.
func (s *Session) SetStatusTab(tab string) {
	s.StatusTab = tab
	s.UpdatedAt = time.Now()
}

// Clear forgets everything.
func (s *Session) Clear() {
	s.ChatID = ""
	s.ChatTitle = ""
	s.StatusTab = ""
	s.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the session.
func (s *Session) String() string {
	if s.IsEmpty() {
		return "(no session)"
	}
	out := ""
	if s.ChatID != "" {
		title := s.ChatTitle
		if title == "" {
			title = shortID(s.ChatID)
		}
		out = fmt.Sprintf("chat:%s", title)
	}
	if s.StatusTab != "" {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("tab:%s", s.StatusTab)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SessionStore manages loading and saving the session file.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a session store. If path is empty, uses the
// default path (~/.config/tgdesk/session.yaml).
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "tgdesk", "session.yaml")
	}
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk. Returns an empty session if the file
// doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sess, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return sess, nil
}

// Save writes the session to disk.
func (s *SessionStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
