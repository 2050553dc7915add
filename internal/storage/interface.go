package storage

import (
	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

// Interface is the single-slot open-position store.
//
// At most one position exists system-wide; Save overwrites unconditionally,
// Load reports absence (including a corrupt slot) without error, and Clear
// is idempotent. Implementations must be safe for concurrent use - the
// provided JSONStore uses sync.RWMutex to serialize access.
type Interface interface {
	// Save persists the position, replacing any existing one.
	Save(pos *models.OpenPosition) error
	// Load returns the stored position, or (nil, false) when the slot is
	// empty or unreadable. It never fails the exit check.
	Load() (*models.OpenPosition, bool)
	// Clear empties the slot. Clearing an empty slot is a no-op.
	Clear() error
}

// NewStore creates the default storage implementation (JSON file backed).
func NewStore(filepath string) Interface {
	return NewJSONStore(filepath)
}

// Ensure JSONStore implements Interface
var _ Interface = (*JSONStore)(nil)
