package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	contributormetrics "contribution-metrics/internal/contributor/metrics"
	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/contributor/service/mocks"
	"contribution-metrics/internal/contributor/store"
	"contribution-metrics/internal/platform/events"
	usermodels "contribution-metrics/internal/user/models"
	userstore "contribution-metrics/internal/user/store"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/requestcontext"
)

func ptr[T any](v T) *T { return &v }

type ContributorServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	store     *store.InMemory
	users     *userstore.InMemory
	publisher *events.MemoryPublisher
	metrics   *contributormetrics.Metrics
	service   *Service
}

func TestContributorServiceSuite(t *testing.T) {
	suite.Run(t, new(ContributorServiceSuite))
}

func (s *ContributorServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewInMemory()
	s.users = userstore.NewInMemory()
	s.publisher = events.NewMemoryPublisher()
	s.metrics = contributormetrics.New(prometheus.NewRegistry())
	s.service = New(s.store, s.users, WithPublisher(s.publisher), WithMetrics(s.metrics))
}

func (s *ContributorServiceSuite) create(username, address string) *models.Contributor {
	c, err := s.service.CreateContributor(s.ctx, CreateParams{Username: username, Email: address, Name: "Name " + username})
	s.Require().NoError(err)
	return c
}

func (s *ContributorServiceSuite) user(address string) *usermodels.User {
	u, err := usermodels.NewUser(id.NewUserID(), usermodels.NewUserParams{Email: address, Name: "Jane Doe"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, u))
	return u
}

func (s *ContributorServiceSuite) assertError(err error, code dErrors.Code, msg string) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
	if msg != "" {
		s.Equal(msg, dErrors.MessageOf(err))
	}
}

func (s *ContributorServiceSuite) TestCreateContributor() {
	s.Run("normalizes the email and counts the contributor", func() {
		c := s.create("octocat", "  Octo@Example.COM ")
		s.Equal("octo@example.com", c.CurrentEmail)
		s.Equal(models.StatusActive, c.Status)
		s.Empty(c.AllKnownUsernames)
		s.Contains(s.publisher.Types(), events.ContributorCreated)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ContributorsTotal))
	})

	s.Run("rejects a taken username", func() {
		_, err := s.service.CreateContributor(s.ctx, CreateParams{Username: "octocat", Email: "other@example.com", Name: "Other"})
		s.assertError(err, dErrors.CodeValidation, "Contributor with username 'octocat' already exists")
	})

	s.Run("rejects an invalid email", func() {
		_, err := s.service.CreateContributor(s.ctx, CreateParams{Username: "x", Email: "nope", Name: "X"})
		s.assertError(err, dErrors.CodeValidation, "Invalid email format")
	})

	s.Run("links to an existing user", func() {
		u := s.user("jane@example.com")
		c, err := s.service.CreateContributor(s.ctx, CreateParams{
			Username: "jane", Email: "jane@example.com", Name: "Jane",
			UserID: &u.ID, Status: ptr(models.StatusInactive),
		})
		s.Require().NoError(err)
		s.Equal(u.ID, *c.UserID)
		s.Equal(models.StatusInactive, c.Status)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.LinkedTotal))
	})

	s.Run("rejects a missing user", func() {
		missing := id.NewUserID()
		_, err := s.service.CreateContributor(s.ctx, CreateParams{Username: "ghost", Email: "g@example.com", Name: "G", UserID: &missing})
		s.assertError(err, dErrors.CodeNotFound, "User with ID '"+missing.String()+"' not found")
	})
}

func (s *ContributorServiceSuite) TestListContributors() {
	for i, name := range []string{"a", "b", "c"} {
		ctx := requestcontext.WithTime(s.ctx, s.now.Add(time.Duration(i)*time.Minute))
		_, err := s.service.CreateContributor(ctx, CreateParams{Username: name, Email: name + "@example.com", Name: name})
		s.Require().NoError(err)
	}

	s.Run("defaults to the first page", func() {
		page, err := s.service.ListContributors(s.ctx, ListParams{})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Equal(models.DefaultLimit, page.Limit)
		s.Len(page.Data, 3)
	})

	s.Run("paginates", func() {
		page, err := s.service.ListContributors(s.ctx, ListParams{Limit: ptr(1), Offset: ptr(1)})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Require().Len(page.Data, 1)
		s.Equal("b", page.Data[0].CurrentUsername)
	})

	s.Run("filters by email", func() {
		page, err := s.service.ListContributors(s.ctx, ListParams{Email: "C@EXAMPLE.COM"})
		s.Require().NoError(err)
		s.Require().Len(page.Data, 1)
		s.Equal("c", page.Data[0].CurrentUsername)
	})

	s.Run("validates bounds", func() {
		_, err := s.service.ListContributors(s.ctx, ListParams{Limit: ptr(101)})
		s.assertError(err, dErrors.CodeValidation, "Limit must be between 1 and 100")
		_, err = s.service.ListContributors(s.ctx, ListParams{Limit: ptr(0)})
		s.assertError(err, dErrors.CodeValidation, "")
		_, err = s.service.ListContributors(s.ctx, ListParams{Offset: ptr(-1)})
		s.assertError(err, dErrors.CodeValidation, "Offset must be greater than or equal to 0")
	})
}

func (s *ContributorServiceSuite) TestLookups() {
	c := s.create("octocat", "octo@example.com")

	got, err := s.service.GetContributor(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	got, err = s.service.GetContributorByUsername(s.ctx, " octocat ")
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	got, err = s.service.GetContributorByEmail(s.ctx, "OCTO@example.com")
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	missing := id.NewContributorID()
	_, err = s.service.GetContributor(s.ctx, missing)
	s.assertError(err, dErrors.CodeNotFound, "Contributor with ID '"+missing.String()+"' not found")

	_, err = s.service.GetContributorByUsername(s.ctx, "nobody")
	s.assertError(err, dErrors.CodeNotFound, "Contributor with username 'nobody' not found")

	_, err = s.service.GetContributor(s.ctx, id.ContributorID{})
	s.assertError(err, dErrors.CodeValidation, "Contributor ID cannot be empty")
}

func (s *ContributorServiceSuite) TestUpdateContributor() {
	c := s.create("octocat", "octo@example.com")

	s.Run("renames and keeps the old username as an alias", func() {
		updated, err := s.service.UpdateContributor(s.ctx, c.ID, UpdateParams{Username: ptr("octodog")})
		s.Require().NoError(err)
		s.Equal("octodog", updated.CurrentUsername)
		s.Equal([]string{"octocat"}, updated.AllKnownUsernames)
		s.Equal("octo@example.com", updated.CurrentEmail)
		s.Contains(s.publisher.Types(), events.ContributorUpdated)
	})

	s.Run("merges aliases and status", func() {
		updated, err := s.service.UpdateContributor(s.ctx, c.ID, UpdateParams{
			KnownEmails: []string{"OLD@example.com"},
			Status:      ptr(models.StatusInactive),
		})
		s.Require().NoError(err)
		s.Equal([]string{"old@example.com"}, updated.AllKnownEmails)
		s.Equal(models.StatusInactive, updated.Status)
	})

	s.Run("rejects a username held by someone else", func() {
		s.create("taken", "taken@example.com")
		_, err := s.service.UpdateContributor(s.ctx, c.ID, UpdateParams{Username: ptr("taken")})
		s.assertError(err, dErrors.CodeValidation, "Contributor with username 'taken' already exists")
	})

	s.Run("rejects a bad alias email", func() {
		_, err := s.service.UpdateContributor(s.ctx, c.ID, UpdateParams{KnownEmails: []string{"bad"}})
		s.assertError(err, dErrors.CodeValidation, "Invalid email format: bad")
	})

	s.Run("not found", func() {
		_, err := s.service.UpdateContributor(s.ctx, id.NewContributorID(), UpdateParams{Name: ptr("x")})
		s.assertError(err, dErrors.CodeNotFound, "")
	})
}

func (s *ContributorServiceSuite) TestLinking() {
	c := s.create("octocat", "octo@example.com")
	u := s.user("jane@example.com")

	linked, err := s.service.LinkToUser(s.ctx, c.ID, u.ID)
	s.Require().NoError(err)
	s.Equal(u.ID, *linked.UserID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.LinkedTotal))

	missing := id.NewUserID()
	_, err = s.service.LinkToUser(s.ctx, c.ID, missing)
	s.assertError(err, dErrors.CodeNotFound, "User with ID '"+missing.String()+"' not found")

	unlinked, err := s.service.UnlinkFromUser(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Nil(unlinked.UserID)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.LinkedTotal))
	s.Contains(s.publisher.Types(), events.ContributorUnlinked)
}

func (s *ContributorServiceSuite) TestUnlinkUser() {
	u := s.user("jane@example.com")
	a := s.create("a", "a@example.com")
	b := s.create("b", "b@example.com")
	for _, c := range []*models.Contributor{a, b} {
		_, err := s.service.LinkToUser(s.ctx, c.ID, u.ID)
		s.Require().NoError(err)
	}

	bystander := s.create("c", "c@example.com")
	_, err := s.service.LinkToUser(s.ctx, bystander.ID, s.user("other@example.com").ID)
	s.Require().NoError(err)
	before := len(s.publisher.Events())

	s.Require().NoError(s.service.UnlinkUser(s.ctx, u.ID))

	page, err := s.service.ListContributors(s.ctx, ListParams{UserID: &u.ID})
	s.Require().NoError(err)
	s.Zero(page.Total)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.LinkedTotal))

	emitted := s.publisher.Events()[before:]
	s.Require().Len(emitted, 2)
	var aggregates []string
	for _, ev := range emitted {
		s.Equal(events.ContributorUnlinked, ev.Type)
		aggregates = append(aggregates, ev.AggregateID)
	}
	s.ElementsMatch([]string{a.ID.String(), b.ID.String()}, aggregates)

	s.Run("a second call emits nothing", func() {
		s.Require().NoError(s.service.UnlinkUser(s.ctx, u.ID))
		s.Len(s.publisher.Events(), before+2)
	})
}

func (s *ContributorServiceSuite) TestDeleteContributor() {
	c := s.create("octocat", "octo@example.com")
	s.Require().NoError(s.service.DeleteContributor(s.ctx, c.ID))
	s.Contains(s.publisher.Types(), events.ContributorDeleted)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.ContributorsTotal))

	err := s.service.DeleteContributor(s.ctx, c.ID)
	s.assertError(err, dErrors.CodeNotFound, "Contributor with ID '"+c.ID.String()+"' not found")
}

func (s *ContributorServiceSuite) TestUpsertFromGitHub() {
	active := s.now.Add(-time.Hour)

	s.Run("creates an unknown member with a noreply address", func() {
		c, result, err := s.service.UpsertFromGitHub(s.ctx, models.GitHubIdentity{Login: "Hubot", LastActiveAt: &active})
		s.Require().NoError(err)
		s.Equal(models.UpsertCreated, result)
		s.Equal("hubot@users.noreply.github.com", c.CurrentEmail)
		s.NotEmpty(c.CurrentName)
		s.Require().NotNil(c.LastActiveDate)
		s.True(active.Equal(*c.LastActiveDate))
	})

	s.Run("is unchanged on a repeat sync", func() {
		_, result, err := s.service.UpsertFromGitHub(s.ctx, models.GitHubIdentity{Login: "Hubot", LastActiveAt: &active})
		s.Require().NoError(err)
		s.Equal(models.UpsertUnchanged, result)
	})

	s.Run("matches a renamed account by email", func() {
		existing := s.create("old-login", "dev@example.com")
		c, result, err := s.service.UpsertFromGitHub(s.ctx, models.GitHubIdentity{Login: "new-login", Email: "DEV@example.com"})
		s.Require().NoError(err)
		s.Equal(models.UpsertUpdated, result)
		s.Equal(existing.ID, c.ID)
		s.Equal("new-login", c.CurrentUsername)
		s.Contains(c.AllKnownUsernames, "old-login")
		s.Equal(existing.CurrentName, c.CurrentName)
	})

	s.Run("keeps a newer activity date", func() {
		older := active.Add(-24 * time.Hour)
		c, result, err := s.service.UpsertFromGitHub(s.ctx, models.GitHubIdentity{Login: "Hubot", LastActiveAt: &older})
		s.Require().NoError(err)
		s.Equal(models.UpsertUnchanged, result)
		s.True(active.Equal(*c.LastActiveDate))
	})

	s.Run("rejects a blank login", func() {
		_, _, err := s.service.UpsertFromGitHub(s.ctx, models.GitHubIdentity{Login: " "})
		s.assertError(err, dErrors.CodeValidation, "Username cannot be empty")
	})
}

func TestContributorServiceStoreFailures(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	t.Run("create lost the race on the unique constraint", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		contributors := mocks.NewMockStore(ctrl)
		contributors.EXPECT().FindByUsername(gomock.Any(), "octocat").Return(nil, sentinel.ErrNotFound)
		contributors.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := New(contributors, nil).CreateContributor(ctx, CreateParams{Username: "octocat", Email: "o@example.com", Name: "Octo"})
		require.Error(t, err)
		assert.Equal(t, "Contributor with username 'octocat' already exists", dErrors.MessageOf(err))
	})

	t.Run("foreign key backstop maps to user not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		contributors := mocks.NewMockStore(ctrl)
		users := mocks.NewMockUserFinder(ctrl)
		userID := id.NewUserID()
		users.EXPECT().FindByID(gomock.Any(), userID).Return(&usermodels.User{ID: userID}, nil)
		contributors.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrBrokenReference)

		_, err := New(contributors, users).LinkToUser(ctx, id.NewContributorID(), userID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("database unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		contributors := mocks.NewMockStore(ctrl)
		contributors.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, 0, sentinel.ErrUnavailable)

		_, err := New(contributors, nil).ListContributors(ctx, ListParams{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("unlinking a user without contributors emits nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		contributors := mocks.NewMockStore(ctrl)
		userID := id.NewUserID()
		contributors.EXPECT().UnlinkUser(gomock.Any(), userID, now).Return([]*models.Contributor{}, nil)
		publisher := events.NewMemoryPublisher()

		require.NoError(t, New(contributors, nil, WithPublisher(publisher)).UnlinkUser(ctx, userID))
		assert.Empty(t, publisher.Events())
	})

	t.Run("unlink reports an unavailable database", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		contributors := mocks.NewMockStore(ctrl)
		contributors.EXPECT().UnlinkUser(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)
		publisher := events.NewMemoryPublisher()

		err := New(contributors, nil, WithPublisher(publisher)).UnlinkUser(ctx, id.NewUserID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Empty(t, publisher.Events())
	})

	t.Run("unexpected errors are internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		contributors := mocks.NewMockStore(ctrl)
		contributors.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		_, err := New(contributors, nil).GetContributor(ctx, id.NewContributorID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
