package draft

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Drafts do not survive a restart.
type Memory struct {
	mu     sync.Mutex
	drafts map[Key]*Draft
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{drafts: make(map[Key]*Draft)}
}

func (m *Memory) Load(_ context.Context, key Key) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (m *Memory) Save(_ context.Context, d *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.Key] = d.Clone()
	return nil
}

func (m *Memory) MarkPersisted(_ context.Context, key Key, questionID int64, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[key]
	if !ok {
		d = New(key)
		m.drafts[key] = d
	}
	d.Persisted[questionID] = digest
	return nil
}

func (m *Memory) Clear(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key)
	return nil
}
