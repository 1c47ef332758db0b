package journal

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryJournal struct {
	mu      sync.Mutex
	entries []Entry
	ids     map[string]struct{}
}

// NewMemory returns an in-process journal for development and tests.
func NewMemory() Journal {
	return &memoryJournal{ids: make(map[string]struct{})}
}

func (m *memoryJournal) Record(_ context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.ids[entry.ID]; dup {
		return nil
	}
	m.ids[entry.ID] = struct{}{}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryJournal) History(_ context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0)
	for _, e := range m.entries {
		if e.SessionID != sessionID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
