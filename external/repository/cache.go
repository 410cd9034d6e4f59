package repository

import (
	"context"
	"sync"

	"github.com/inkfable/storyweave/internal/repository"
)

// CachingRepository is a read-through cache over a Repository. Cached copies
// are replaced whenever a write commits a newer version and evicted on
// archive or conflict, so the session version doubles as the invalidation
// token. Only correct for a single bot process owning the store.
type CachingRepository struct {
	inner repository.Repository

	mu       sync.RWMutex
	sessions map[string]*repository.Session
}

func NewCachingRepository(inner repository.Repository) *CachingRepository {
	return &CachingRepository{
		inner:    inner,
		sessions: make(map[string]*repository.Session),
	}
}

func (c *CachingRepository) Get(ctx context.Context, key string) (*repository.Session, error) {
	c.mu.RLock()
	cached, ok := c.sessions[key]
	c.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	s, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.store(key, s)
	return s, nil
}

func (c *CachingRepository) Create(ctx context.Context, key string, s *repository.Session) (*repository.Session, error) {
	created, err := c.inner.Create(ctx, key, s)
	if err != nil {
		return nil, err
	}
	// A create replaces any rotated-out occupant, so the version ordering
	// guard does not apply here.
	c.mu.Lock()
	c.sessions[key] = created.Clone()
	c.mu.Unlock()
	return created, nil
}

func (c *CachingRepository) ConditionalUpdate(ctx context.Context, key string, expectedVersion int64, mutate repository.Mutator) (*repository.Session, error) {
	updated, err := c.inner.ConditionalUpdate(ctx, key, expectedVersion, mutate)
	if err != nil {
		// A conflict means the cached copy is stale; drop it so the next
		// read observes the winner.
		c.evict(key)
		return nil, err
	}
	c.store(key, updated)
	return updated, nil
}

func (c *CachingRepository) Archive(ctx context.Context, key string) error {
	if err := c.inner.Archive(ctx, key); err != nil {
		return err
	}
	c.evict(key)
	return nil
}

func (c *CachingRepository) DesignatedChannel(ctx context.Context, guildID string) (string, error) {
	return c.inner.DesignatedChannel(ctx, guildID)
}

func (c *CachingRepository) SetDesignatedChannel(ctx context.Context, guildID, channelID string) error {
	return c.inner.SetDesignatedChannel(ctx, guildID, channelID)
}

func (c *CachingRepository) RemoveDesignatedChannel(ctx context.Context, guildID string) error {
	return c.inner.RemoveDesignatedChannel(ctx, guildID)
}

func (c *CachingRepository) store(key string, s *repository.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.sessions[key]; ok && cur.Version >= s.Version {
		return
	}
	c.sessions[key] = s.Clone()
}

func (c *CachingRepository) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, key)
}
