package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Aggregate keys. One cache entry per aggregate; writers always replace the
// whole value.
const (
	KeyTasks         = "tasks"
	KeyPlants        = "plants"
	KeyCompost       = "compost"
	KeyLevel         = "level"
	KeyProfile       = "profile"
	KeyAchievements  = "achievements"
	KeyFocusSessions = "focus_sessions"
)

// ErrCorrupt marks a stored payload that no longer parses. This is the one
// cache failure surfaced to callers; they recover by falling back to seeded
// defaults.
var ErrCorrupt = errors.New("cache: stored payload is corrupt")

// Store is the local persistent cache: best-effort durable storage of each
// aggregate under a fixed key.
type Store interface {
	// Get returns the serialized value for key, with ok=false when absent.
	Get(key string) (data []byte, ok bool, err error)
	// Set replaces the value for key.
	Set(key string, data []byte) error
}

// FileStore keeps one JSON file per aggregate key under a data directory.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory, used by backup tooling.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *FileStore) Set(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.WriteFile(s.keyPath(key), data, 0o644)
}

// GetJSON reads key and decodes it into v. A payload that exists but fails to
// decode reports ErrCorrupt.
func GetJSON(s Store, key string, v any) (bool, error) {
	b, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("%w: key %q: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, b)
}

// Memory is an in-process Store for tests.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	SetErr error // when non-nil, Set fails with this error
}

func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *Memory) Set(key string, data []byte) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}
