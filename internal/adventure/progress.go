package adventure

import (
	"context"
	"sync"
)

// Progress is one learner's position in an adventure.
type Progress struct {
	StepName string            `json:"step"`
	Choices  map[string]string `json:"choices,omitempty"`
}

// clone returns a copy that does not share the choices map.
func (p Progress) clone() Progress {
	out := Progress{StepName: p.StepName}
	if len(p.Choices) > 0 {
		out.Choices = make(map[string]string, len(p.Choices))
		for k, v := range p.Choices {
			out.Choices[k] = v
		}
	}
	return out
}

// ProgressStore persists progress per adventure and learner. Load returns
// a zero Progress for an unknown learner.
type ProgressStore interface {
	Load(ctx context.Context, adventureID, learnerID string) (Progress, error)
	Save(ctx context.Context, adventureID, learnerID string, p Progress) error
}

// MemoryStore keeps progress in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Progress
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Progress)}
}

func (m *MemoryStore) Load(_ context.Context, adventureID, learnerID string) (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[adventureID+"/"+learnerID].clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, adventureID, learnerID string, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[adventureID+"/"+learnerID] = p.clone()
	return nil
}
