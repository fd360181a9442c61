//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"contribution-metrics/internal/organization/models"
	"contribution-metrics/internal/organization/store"
	"contribution-metrics/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backend *store.InMemory
	cache   *store.Cached
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.backend = store.NewInMemory()
	s.cache = store.NewCached(s.backend, s.redis.Client, store.WithCacheTTL(time.Minute))
}

func (s *RedisCacheSuite) TestLookupPopulatesCache() {
	ctx := context.Background()
	org := newTestOrganization(s.T(), "acme")
	s.Require().NoError(s.cache.Create(ctx, org, "tok"))

	_, err := s.cache.FindByID(ctx, org.ID)
	s.Require().NoError(err)

	exists, err := s.redis.Client.Exists(ctx, "org:id:"+org.ID.String()).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	raw, err := s.redis.Client.Get(ctx, "org:id:"+org.ID.String()).Result()
	s.Require().NoError(err)
	s.NotContains(raw, "tok")
}

func (s *RedisCacheSuite) TestRenameInvalidatesOldAndNewName() {
	ctx := context.Background()
	org := newTestOrganization(s.T(), "acme")
	s.Require().NoError(s.cache.Create(ctx, org, "tok"))

	_, err := s.cache.FindByName(ctx, "ACME")
	s.Require().NoError(err)

	_, err = s.cache.Execute(ctx, org.ID, func(o *models.Organization) (*models.Organization, error) {
		return o.Rename("globex", time.Now())
	})
	s.Require().NoError(err)

	exists, err := s.redis.Client.Exists(ctx, "org:name:ACME").Result()
	s.Require().NoError(err)
	s.Zero(exists)

	found, err := s.cache.FindByID(ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("GLOBEX", found.Name)
}

func (s *RedisCacheSuite) TestDeleteEvictsEntries() {
	ctx := context.Background()
	org := newTestOrganization(s.T(), "acme")
	s.Require().NoError(s.cache.Create(ctx, org, "tok"))
	_, err := s.cache.FindByID(ctx, org.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.cache.Delete(ctx, org.ID))

	_, err = s.cache.FindByID(ctx, org.ID)
	s.Error(err)
}
