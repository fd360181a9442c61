package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"contribution-metrics/internal/contributor/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
)

type ContributorStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestContributorStoreSuite(t *testing.T) {
	suite.Run(t, new(ContributorStoreSuite))
}

func (s *ContributorStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *ContributorStoreSuite) add(username, address string, known ...string) *models.Contributor {
	s.now = s.now.Add(time.Second)
	c, err := models.NewContributor(id.NewContributorID(), models.NewContributorParams{
		Username:       username,
		Email:          address,
		Name:           "Name " + username,
		KnownUsernames: known,
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *ContributorStoreSuite) TestLookups() {
	c := s.add("octocat", "octo@ex.com")

	byUsername, err := s.store.FindByUsername(s.ctx, "octocat")
	s.Require().NoError(err)
	s.Equal(c.ID, byUsername.ID)

	byEmail, err := s.store.FindByEmail(s.ctx, "octo@ex.com")
	s.Require().NoError(err)
	s.Equal(c.ID, byEmail.ID)

	_, err = s.store.FindByUsername(s.ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContributorStoreSuite) TestCreateRejectsDuplicateUsername() {
	s.add("octocat", "a@ex.com")
	dup, err := models.NewContributor(id.NewContributorID(), models.NewContributorParams{
		Username: "octocat", Email: "b@ex.com", Name: "B",
	}, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
}

func (s *ContributorStoreSuite) TestListFiltersAndPaginates() {
	userID := id.NewUserID()
	first := s.add("alpha", "alpha@ex.com", "old-alpha")
	s.add("beta", "beta@ex.com")
	third := s.add("gamma", "gamma@ex.com")
	_, err := s.store.Execute(s.ctx, third.ID, func(c *models.Contributor) (*models.Contributor, error) {
		return c.LinkToUser(userID, s.now)
	})
	s.Require().NoError(err)

	s.Run("pages in creation order", func() {
		page, total, err := s.store.List(s.ctx, models.ListFilter{Limit: 2, Offset: 1})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(page, 2)
		s.Equal("beta", page[0].CurrentUsername)
		s.Equal("gamma", page[1].CurrentUsername)
	})

	s.Run("offset past the end is empty", func() {
		page, total, err := s.store.List(s.ctx, models.ListFilter{Limit: 10, Offset: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(page)
	})

	s.Run("matches known usernames", func() {
		page, total, err := s.store.List(s.ctx, models.ListFilter{Username: "old-alpha", Limit: 10})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal(first.ID, page[0].ID)
	})

	s.Run("filters by linked user", func() {
		page, _, err := s.store.List(s.ctx, models.ListFilter{UserID: &userID, Limit: 10})
		s.Require().NoError(err)
		s.Require().Len(page, 1)
		s.Equal(third.ID, page[0].ID)
	})
}

func (s *ContributorStoreSuite) TestExecuteGuardsUsername() {
	a := s.add("a", "a@ex.com")
	s.add("b", "b@ex.com")

	_, err := s.store.Execute(s.ctx, a.ID, func(c *models.Contributor) (*models.Contributor, error) {
		return c.UpdateCurrentInfo("b", c.CurrentEmail, c.CurrentName, s.now)
	})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("a", found.CurrentUsername)
}

func (s *ContributorStoreSuite) TestReturnedValuesAreCopies() {
	c := s.add("a", "a@ex.com", "x")
	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	found.AllKnownUsernames[0] = "mutated"

	again, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal([]string{"x"}, again.AllKnownUsernames)
}

func (s *ContributorStoreSuite) TestUnlinkUserAndCount() {
	userID := id.NewUserID()
	c := s.add("a", "a@ex.com")
	_, err := s.store.Execute(s.ctx, c.ID, func(c *models.Contributor) (*models.Contributor, error) {
		return c.LinkToUser(userID, s.now)
	})
	s.Require().NoError(err)

	total, linked, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(1, linked)

	other := s.add("b", "b@ex.com")

	unlinked, err := s.store.UnlinkUser(s.ctx, userID, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().Len(unlinked, 1)
	s.Equal(c.ID, unlinked[0].ID)
	s.Nil(unlinked[0].UserID)
	s.Equal(s.now.Add(time.Minute), unlinked[0].UpdatedAt)

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Nil(found.UserID)
	untouched, err := s.store.FindByID(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(other.UpdatedAt, untouched.UpdatedAt)

	again, err := s.store.UnlinkUser(s.ctx, userID, s.now)
	s.Require().NoError(err)
	s.Empty(again)

	s.Require().NoError(s.store.Delete(s.ctx, c.ID))
	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrNotFound)
}
