package store

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contribution-metrics/internal/organization/metrics"
	"contribution-metrics/internal/organization/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/circuit"
	"contribution-metrics/pkg/platform/sentinel"
)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedFallsBackToBackendWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	backend := NewInMemory()
	org, err := models.NewOrganization(id.NewOrganizationID(), "acme", now.Add(time.Hour), now)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	breaker := circuit.New("org-cache-test", circuit.WithFailureThreshold(2))
	cached := NewCached(backend, unreachableRedis(t), WithCacheMetrics(m), WithCacheBreaker(breaker))

	require.NoError(t, cached.Create(ctx, org, "tok"))

	found, err := cached.FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", found.Name)
	assert.True(t, breaker.IsOpen(), "repeated redis failures should open the breaker")

	found, err = cached.FindByName(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, org.ID, found.ID)
	assert.Equal(t, float64(1), promtestutil.ToFloat64(m.CacheRequests.WithLabelValues("bypass")))
}

func TestCachedPassesThroughBackendErrors(t *testing.T) {
	ctx := context.Background()
	cached := NewCached(NewInMemory(), unreachableRedis(t))

	_, err := cached.FindByID(ctx, id.NewOrganizationID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.ErrorIs(t, cached.Delete(ctx, id.NewOrganizationID()), sentinel.ErrNotFound)
}

func TestCachedMutationsReachBackend(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	backend := NewInMemory()
	cached := NewCached(backend, unreachableRedis(t))

	org, err := models.NewOrganization(id.NewOrganizationID(), "acme", now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, cached.Create(ctx, org, "old"))

	_, err = cached.RotateToken(ctx, org.ID, "new", func(o *models.Organization) (*models.Organization, error) {
		return o.UpdateToken(now.Add(2*time.Hour), now)
	})
	require.NoError(t, err)

	token, err := cached.AccessToken(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", token)

	require.NoError(t, cached.Delete(ctx, org.ID))
	n, err := cached.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
