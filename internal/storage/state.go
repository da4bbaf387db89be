package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// StateStore keeps one JSON document per fetcher, e.g. its paging cursor.
type StateStore struct {
	dir    string
	logger *log.Logger
}

func NewStateStore(dir string, logger *log.Logger) *StateStore {
	return &StateStore{dir: dir, logger: logger}
}

func (s *StateStore) path(fetcher string) string {
	return filepath.Join(s.dir, fetcher+".json")
}

// Load returns an empty state when nothing was stored yet.
func (s *StateStore) Load(fetcher string) (map[string]any, error) {
	blob, err := os.ReadFile(s.path(fetcher))
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("no stored state, using empty default", "fetcher", fetcher)
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	state := map[string]any{}
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("load state of %s: %w", fetcher, err)
	}
	return state, nil
}

func (s *StateStore) Store(fetcher string, state map[string]any) error {
	p := s.path(fetcher)
	s.logger.Debug("saving state", "fetcher", fetcher, "path", p)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, blob, 0o644)
}

// Delete reports whether a stored state existed.
func (s *StateStore) Delete(fetcher string) (bool, error) {
	p := s.path(fetcher)
	err := os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Debug("deleted state", "fetcher", fetcher, "path", p)
	return true, nil
}
