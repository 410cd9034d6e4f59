package repository

import (
	"context"
	"sync"

	"github.com/inkfable/storyweave/internal/repository"
)

// MemoryStore is the in-process Repository. It backs tests and
// credential-free runs, and defines the reference semantics the other
// backends must match.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*repository.Session
	archived map[string][]*repository.Session
	channels map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*repository.Session),
		archived: make(map[string][]*repository.Session),
		channels: make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Create(_ context.Context, key string, s *repository.Session) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[key]; ok {
		if cur.Status == repository.SessionStatusActive {
			return nil, repository.ErrAlreadyExists
		}
		m.archived[key] = append(m.archived[key], cur)
	}
	stored := s.Clone()
	m.sessions[key] = stored
	return stored.Clone(), nil
}

func (m *MemoryStore) ConditionalUpdate(_ context.Context, key string, expectedVersion int64, mutate repository.Mutator) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = expectedVersion + 1
	m.sessions[key] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Archive(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[key]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.sessions, key)
	m.archived[key] = append(m.archived[key], cur)
	return nil
}

func (m *MemoryStore) DesignatedChannel(_ context.Context, guildID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[guildID], nil
}

func (m *MemoryStore) SetDesignatedChannel(_ context.Context, guildID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[guildID] = channelID
	return nil
}

func (m *MemoryStore) RemoveDesignatedChannel(_ context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, guildID)
	return nil
}
