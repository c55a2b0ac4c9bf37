package session

import (
	"context"
	"sort"
	"sync"

	"appgateway/pkg/shopify"
)

// MemoryStore is a map-backed Store for tests and single-process dev runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]shopify.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]shopify.Session)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*shopify.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStore) Store(_ context.Context, s *shopify.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) FindByShop(_ context.Context, shop string) ([]*shopify.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*shopify.Session
	for _, s := range m.sessions {
		if s.Shop == shop {
			cp := s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
