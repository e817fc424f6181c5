// Package session holds the signed-in client's state and persists the
// part of it that survives restarts.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/oauth2"

	"roomcal/internal/calendar"
	"roomcal/internal/config"
	"roomcal/internal/model"
)

// Persisted keys. Values are strings; token and user hold encoded JSON.
const (
	keyToken    = "token"
	keyUser     = "user"
	keyDarkMode = "darkMode"
)

// State is everything the client tracks between commands. Only Token,
// User and DarkMode are persisted.
type State struct {
	Token     *oauth2.Token
	User      *model.User
	RoomID    int
	Reference model.Date
	View      calendar.ViewMode
	DarkMode  bool
}

// SignedIn reports whether a user and access token are present.
func (s State) SignedIn() bool {
	return s.User != nil && s.Token != nil && s.Token.AccessToken != ""
}

// SignIn records a successful login.
func (s *State) SignIn(token *oauth2.Token, user model.User) {
	s.Token = token
	s.User = &user
}

// SignOut forgets the user and token and keeps preferences.
func (s *State) SignOut() {
	s.Token = nil
	s.User = nil
}

// FileStore persists State as a flat JSON object of string values.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStore uses ~/.config/roomcal/session.json.
func DefaultFileStore() (*FileStore, error) {
	path, err := config.GetSessionPath()
	if err != nil {
		return nil, err
	}
	return NewFileStore(path), nil
}

func (f *FileStore) Path() string { return f.path }

// Load reads the persisted state. A missing file yields a zero State.
// Unreadable individual values are dropped rather than failing the load.
func (f *FileStore) Load() (State, error) {
	var st State
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read session %s: %w", f.path, err)
	}

	var kv map[string]string
	if err := json.Unmarshal(data, &kv); err != nil {
		return st, fmt.Errorf("parse session %s: %w", f.path, err)
	}

	if raw := kv[keyToken]; raw != "" {
		var tok oauth2.Token
		if json.Unmarshal([]byte(raw), &tok) == nil {
			st.Token = &tok
		}
	}
	if raw := kv[keyUser]; raw != "" {
		var u model.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			st.User = &u
		}
	}
	st.DarkMode, _ = strconv.ParseBool(kv[keyDarkMode])
	return st, nil
}

// Save writes the persisted subset of st with mode 0600.
func (f *FileStore) Save(st State) error {
	kv := map[string]string{
		keyDarkMode: strconv.FormatBool(st.DarkMode),
	}
	if st.Token != nil {
		raw, err := json.Marshal(st.Token)
		if err != nil {
			return fmt.Errorf("encode token: %w", err)
		}
		kv[keyToken] = string(raw)
	}
	if st.User != nil {
		raw, err := json.Marshal(st.User)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		kv[keyUser] = string(raw)
	}

	data, err := json.MarshalIndent(kv, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(f.path, data)
}

// Clear signs out on disk, keeping preferences.
func (f *FileStore) Clear() error {
	st, err := f.Load()
	if err != nil {
		return err
	}
	st.SignOut()
	return f.Save(st)
}
