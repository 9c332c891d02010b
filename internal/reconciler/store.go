package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalStore persists the local cart between runs.
type LocalStore interface {
	Load() ([]Line, error)
	Save(lines []Line) error
}

// FileStore keeps the cart as a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty cart when the file does not exist yet.
func (s *FileStore) Load() ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart file: %w", err)
	}
	return lines, nil
}

// Save replaces the file through a rename so a crash never leaves half a cart.
func (s *FileStore) Save(lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cart-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cart file: %w", err)
	}
	return nil
}

type MemoryStore struct {
	mu    sync.Mutex
	lines []Line
}

func NewMemoryStore(lines ...Line) *MemoryStore {
	return &MemoryStore{lines: cloneLines(lines)}
}

func (s *MemoryStore) Load() ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines), nil
}

func (s *MemoryStore) Save(lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = cloneLines(lines)
	return nil
}
