package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lox/pokertables/internal/fileutil"
)

// ErrNoSession is returned when no seat is stored for a game
var ErrNoSession = errors.New("no session for game")

// SessionStore keeps session tokens between CLI invocations in a JSON file
// keyed by game id.
type SessionStore struct {
	path string
}

// NewSessionStore returns a store backed by path
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

func (s *SessionStore) load() (map[string]Session, error) {
	sessions := make(map[string]Session)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return sessions, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions %s: %w", s.path, err)
	}
	return sessions, nil
}

func (s *SessionStore) save(sessions map[string]Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}

// Put stores a session, replacing any earlier one for the same game
func (s *SessionStore) Put(session Session) error {
	sessions, err := s.load()
	if err != nil {
		return err
	}
	sessions[session.GameID] = session
	return s.save(sessions)
}

// Get returns the stored session for gameID
func (s *SessionStore) Get(gameID string) (*Session, error) {
	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	session, ok := sessions[gameID]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoSession, gameID)
	}
	return &session, nil
}

// Delete forgets the session for gameID
func (s *SessionStore) Delete(gameID string) error {
	sessions, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sessions[gameID]; !ok {
		return nil
	}
	delete(sessions, gameID)
	return s.save(sessions)
}
