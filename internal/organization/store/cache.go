package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"contribution-metrics/internal/organization/metrics"
	"contribution-metrics/internal/organization/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/circuit"
)

const (
	cacheKeyByID   = "org:id:"
	cacheKeyByName = "org:name:"

	defaultCacheTTL = 5 * time.Minute
)

// Backend is the store contract the cache decorates. Both InMemory and
// PostgresStore satisfy it.
type Backend interface {
	Create(ctx context.Context, org *models.Organization, accessToken string) error
	FindByID(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error)
	FindByName(ctx context.Context, name string) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	Count(ctx context.Context) (int, error)
	Execute(ctx context.Context, orgID id.OrganizationID, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error)
	RotateToken(ctx context.Context, orgID id.OrganizationID, accessToken string, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error)
	AccessToken(ctx context.Context, orgID id.OrganizationID) (string, error)
	Delete(ctx context.Context, orgID id.OrganizationID) error
}

// Cached is a read-through Redis cache in front of a Backend. Lookups by id and
// by name are cached; every write invalidates both keys. Access tokens are never
// cached.
//
// Redis failures degrade to the backend. After repeated failures the breaker
// opens and reads skip Redis; invalidations keep probing and close it again.
type Cached struct {
	inner   Backend
	client  redis.Cmdable
	ttl     time.Duration
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type CacheOption func(*Cached)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cached) { c.metrics = m }
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cached) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithCacheBreaker(b *circuit.Breaker) CacheOption {
	return func(c *Cached) {
		if b != nil {
			c.breaker = b
		}
	}
}

func NewCached(inner Backend, client redis.Cmdable, opts ...CacheOption) *Cached {
	c := &Cached{
		inner:   inner,
		client:  client,
		ttl:     defaultCacheTTL,
		breaker: circuit.New("org-cache"),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) Create(ctx context.Context, org *models.Organization, accessToken string) error {
	if err := c.inner.Create(ctx, org, accessToken); err != nil {
		return err
	}
	// Clears entries left behind by a delete whose invalidation failed.
	c.invalidate(ctx, org.ID, org.Name)
	return nil
}

func (c *Cached) FindByID(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	return c.readThrough(ctx, cacheKeyByID+orgID.String(), func() (*models.Organization, error) {
		return c.inner.FindByID(ctx, orgID)
	})
}

func (c *Cached) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	return c.readThrough(ctx, cacheKeyByName+name, func() (*models.Organization, error) {
		return c.inner.FindByName(ctx, name)
	})
}

func (c *Cached) List(ctx context.Context) ([]*models.Organization, error) {
	return c.inner.List(ctx)
}

func (c *Cached) Count(ctx context.Context) (int, error) {
	return c.inner.Count(ctx)
}

func (c *Cached) Execute(ctx context.Context, orgID id.OrganizationID, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	return c.writeThrough(ctx, orgID, func(track func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
		return c.inner.Execute(ctx, orgID, track)
	}, fn)
}

func (c *Cached) RotateToken(ctx context.Context, orgID id.OrganizationID, accessToken string, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	return c.writeThrough(ctx, orgID, func(track func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
		return c.inner.RotateToken(ctx, orgID, accessToken, track)
	}, fn)
}

func (c *Cached) AccessToken(ctx context.Context, orgID id.OrganizationID) (string, error) {
	return c.inner.AccessToken(ctx, orgID)
}

func (c *Cached) Delete(ctx context.Context, orgID id.OrganizationID) error {
	current, err := c.inner.FindByID(ctx, orgID)
	if err != nil {
		return err
	}
	if err := c.inner.Delete(ctx, orgID); err != nil {
		return err
	}
	c.invalidate(ctx, orgID, current.Name)
	return nil
}

// writeThrough runs a mutation and invalidates the keys for both the previous
// and the new name.
func (c *Cached) writeThrough(
	ctx context.Context,
	orgID id.OrganizationID,
	run func(func(*models.Organization) (*models.Organization, error)) (*models.Organization, error),
	fn func(*models.Organization) (*models.Organization, error),
) (*models.Organization, error) {
	var previousName string
	updated, err := run(func(current *models.Organization) (*models.Organization, error) {
		previousName = current.Name
		return fn(current)
	})
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, orgID, previousName, updated.Name)
	return updated, nil
}

func (c *Cached) readThrough(ctx context.Context, key string, load func() (*models.Organization, error)) (*models.Organization, error) {
	if c.breaker.IsOpen() {
		c.count("bypass")
		return load()
	}
	if org, ok := c.get(ctx, key); ok {
		c.count("hit")
		return org, nil
	}
	return c.loadAndFill(ctx, key, load)
}

func (c *Cached) loadAndFill(ctx context.Context, key string, load func() (*models.Organization, error)) (*models.Organization, error) {
	org, err := load()
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, org)
	return org, nil
}

// get returns ok only on a cache hit. Misses and Redis errors both fall through.
func (c *Cached) get(ctx context.Context, key string) (*models.Organization, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.breaker.RecordSuccess()
		c.count("miss")
		return nil, false
	}
	if err != nil {
		c.recordFailure(err)
		c.count("error")
		return nil, false
	}
	c.breaker.RecordSuccess()

	var org models.Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		c.logger.Warn("discarding undecodable organization cache entry", "key", key, "error", err)
		return nil, false
	}
	return &org, true
}

func (c *Cached) set(ctx context.Context, key string, org *models.Organization) {
	if c.breaker.IsOpen() {
		return
	}
	raw, err := json.Marshal(org)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.recordFailure(err)
		return
	}
	c.breaker.RecordSuccess()
}

func (c *Cached) invalidate(ctx context.Context, orgID id.OrganizationID, names ...string) {
	keys := []string{cacheKeyByID + orgID.String()}
	for _, name := range names {
		if name != "" {
			keys = append(keys, cacheKeyByName+name)
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.recordFailure(err)
		c.logger.Warn("organization cache invalidation failed", "organization_id", orgID.String(), "error", err)
		return
	}
	c.breaker.RecordSuccess()
}

func (c *Cached) recordFailure(err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("organization cache circuit opened", "breaker", c.breaker.Name(), "error", err)
	}
}

func (c *Cached) count(result string) {
	if c.metrics != nil {
		c.metrics.IncrementCache(result)
	}
}
