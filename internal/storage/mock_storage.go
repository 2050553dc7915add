package storage

import (
	"fmt"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

// MockStore implements Interface in memory for testing.
type MockStore struct {
	position       *models.OpenPosition
	saveError      error
	clearError     error
	saveCallCount  int
	clearCallCount int
}

// NewMockStore creates a new mock store for testing.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Save stores the position in memory.
func (m *MockStore) Save(pos *models.OpenPosition) error {
	m.saveCallCount++
	if m.saveError != nil {
		return m.saveError
	}
	if pos == nil {
		return fmt.Errorf("cannot save nil position")
	}
	cp := *pos
	m.position = &cp
	return nil
}

// Load returns the in-memory position.
func (m *MockStore) Load() (*models.OpenPosition, bool) {
	if m.position == nil {
		return nil, false
	}
	cp := *m.position
	return &cp, true
}

// Clear drops the in-memory position.
func (m *MockStore) Clear() error {
	m.clearCallCount++
	if m.clearError != nil {
		return m.clearError
	}
	m.position = nil
	return nil
}

// SetSaveError makes subsequent Save calls fail.
func (m *MockStore) SetSaveError(err error) { m.saveError = err }

// SetClearError makes subsequent Clear calls fail.
func (m *MockStore) SetClearError(err error) { m.clearError = err }

// SaveCallCount reports how many times Save was invoked.
func (m *MockStore) SaveCallCount() int { return m.saveCallCount }

// ClearCallCount reports how many times Clear was invoked.
func (m *MockStore) ClearCallCount() int { return m.clearCallCount }

// Ensure MockStore implements Interface
var _ Interface = (*MockStore)(nil)
