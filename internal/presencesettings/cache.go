// Package presencesettings resolves the effective presence settings of a company.
package presencesettings

import (
	"context"
	"sync"
	"time"

	"presence-engine/internal/presencesettings/domain"
	"presence-engine/internal/presencesettings/repository"
)

type entry struct {
	settings  *domain.Settings
	expiresAt time.Time
}

// Cache is a read-through TTL cache in front of the settings repository. It always returns
// settings merged with the deployment defaults.
type Cache struct {
	repo     repository.Repository
	defaults domain.Settings
	ttl      time.Duration

	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewCache returns a Cache. A non-positive ttl disables caching.
func NewCache(repo repository.Repository, defaults domain.Settings, ttl time.Duration) *Cache {
	return &Cache{
		repo:     repo,
		defaults: defaults,
		ttl:      ttl,
		m:        make(map[string]entry),
		nowF:     time.Now,
	}
}

// Get returns the effective settings for companyID. Repository errors are returned, not cached.
func (c *Cache) Get(ctx context.Context, companyID string) (*domain.Settings, error) {
	now := c.nowF()
	c.mu.RLock()
	e, ok := c.m[companyID]
	c.mu.RUnlock()
	if ok && e.expiresAt.After(now) {
		return e.settings, nil
	}

	stored, err := c.repo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	merged := domain.MergeWithDefaults(stored, c.defaults)
	if c.ttl > 0 {
		c.mu.Lock()
		c.m[companyID] = entry{settings: merged, expiresAt: now.Add(c.ttl)}
		c.mu.Unlock()
	}
	return merged, nil
}

// Invalidate drops the cached settings of companyID.
func (c *Cache) Invalidate(companyID string) {
	c.mu.Lock()
	delete(c.m, companyID)
	c.mu.Unlock()
}

// Defaults returns the deployment defaults.
func (c *Cache) Defaults() domain.Settings { return c.defaults }
