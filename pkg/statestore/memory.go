package statestore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps agent state in process memory. Suitable for tests and
// single-process runs where hysteresis surviving a restart is not needed.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string][]byte),
	}
}

func (m *MemoryStore) Load(ctx context.Context, resourceID string) (*AgentState, bool, error) {
	m.mu.RLock()
	data, ok := m.states[resourceID]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	var state AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, err
	}
	return &state, true, nil
}

func (m *MemoryStore) Save(ctx context.Context, state *AgentState) error {
	state.UpdatedAt = time.Now()

	// Round-trip through JSON so callers never share pointers with the
	// stored copy, matching the semantics of an external backend.
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.states[state.ResourceID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
