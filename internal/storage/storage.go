package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

// JSONStore persists the open-position slot as a single JSON file at a
// fixed path. Absence of the file means no position is tracked.
type JSONStore struct {
	mu       sync.RWMutex
	filepath string
}

type slotData struct {
	Position    *models.OpenPosition `json:"position"`
	LastUpdated time.Time            `json:"last_updated"`
}

// NewJSONStore creates a store backed by the given file path.
func NewJSONStore(filepath string) *JSONStore {
	return &JSONStore{filepath: filepath}
}

// Save writes the position, replacing any existing record.
func (s *JSONStore) Save(pos *models.OpenPosition) error {
	if pos == nil {
		return fmt.Errorf("cannot save nil position")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(slotData{Position: pos, LastUpdated: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling position: %w", err)
	}

	// Write to temp file first, then atomic rename
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("writing position file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filepath); err != nil {
		return fmt.Errorf("replacing position file: %w", err)
	}
	return nil
}

// Load reads the stored position. A missing or corrupt file reads as
// absent; the exit check must not fail because state went bad on disk.
func (s *JSONStore) Load() (*models.OpenPosition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return nil, false
	}

	var slot slotData
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, false
	}
	if slot.Position == nil {
		return nil, false
	}
	return slot.Position, true
}

// Clear removes the slot file. Clearing an already-empty slot is a no-op.
func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filepath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing position file: %w", err)
	}
	return nil
}
