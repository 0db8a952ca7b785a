package endpoints

import (
	"context"
	"sync"
	"time"

	"pushhook/internal/platform/models"
)

// Repository is the endpoint storage the webhook path and the management API share.
type Repository interface {
	Store
	GetByID(ctx context.Context, id string) (*models.Endpoint, error)
}

type cachedEndpoint struct {
	endpoint models.Endpoint
	cachedAt time.Time
}

// Cache keeps recently resolved endpoints in memory for the webhook path. Writes through the
// cache invalidate the entry; writes from other instances are seen after at most ttl.
type Cache struct {
	Repository
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*cachedEndpoint
	// generations is bumped on every invalidation so a lookup that raced a write never stores
	// the row it read before the write.
	generations map[string]uint64
}

func NewCache(repo Repository, ttl time.Duration) *Cache {
	return &Cache{
		Repository:  repo,
		ttl:         ttl,
		entries:     map[string]*cachedEndpoint{},
		generations: map[string]uint64{},
	}
}

// GetByID serves hits from memory. Unknown ids are not cached so a new endpoint works at once.
func (c *Cache) GetByID(ctx context.Context, id string) (*models.Endpoint, error) {
	c.mu.Lock()
	if entry, ok := c.entries[id]; ok {
		if time.Since(entry.cachedAt) <= c.ttl {
			e := entry.endpoint
			c.mu.Unlock()
			return &e, nil
		}
		delete(c.entries, id)
	}
	gen := c.generations[id]
	c.mu.Unlock()

	endpoint, err := c.Repository.GetByID(ctx, id)
	if err != nil || endpoint == nil {
		return endpoint, err
	}

	c.mu.Lock()
	if c.generations[id] == gen {
		c.entries[id] = &cachedEndpoint{endpoint: *endpoint, cachedAt: time.Now()}
	}
	c.mu.Unlock()
	return endpoint, nil
}

func (c *Cache) Update(ctx context.Context, endpoint *models.Endpoint) error {
	defer c.Invalidate(endpoint.ID)
	return c.Repository.Update(ctx, endpoint)
}

func (c *Cache) UpdateSecret(ctx context.Context, id, userID, secret string) error {
	defer c.Invalidate(id)
	return c.Repository.UpdateSecret(ctx, id, userID, secret)
}

func (c *Cache) Delete(ctx context.Context, id, userID string) (bool, error) {
	defer c.Invalidate(id)
	return c.Repository.Delete(ctx, id, userID)
}

func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.generations[id]++
}
