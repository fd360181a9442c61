package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	contributormodels "contribution-metrics/internal/contributor/models"
	contributorservice "contribution-metrics/internal/contributor/service"
	contributorstore "contribution-metrics/internal/contributor/store"
	"contribution-metrics/internal/githubsync/gateway"
	syncmetrics "contribution-metrics/internal/githubsync/metrics"
	"contribution-metrics/internal/githubsync/models"
	"contribution-metrics/internal/githubsync/service/mocks"
	orgmodels "contribution-metrics/internal/organization/models"
	orgservice "contribution-metrics/internal/organization/service"
	orgstore "contribution-metrics/internal/organization/store"
	userstore "contribution-metrics/internal/user/store"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/requestcontext"
)

type SyncServiceSuite struct {
	suite.Suite
	ctx          context.Context
	now          time.Time
	github       *mocks.MockGitHub
	orgs         *orgservice.Service
	contributors *contributorservice.Service
	metrics      *syncmetrics.Metrics
	service      *Service
	org          *orgmodels.Organization
}

func TestSyncServiceSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceSuite))
}

func (s *SyncServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	ctrl := gomock.NewController(s.T())
	s.github = mocks.NewMockGitHub(ctrl)
	s.orgs = orgservice.New(orgstore.NewInMemory())
	s.contributors = contributorservice.New(contributorstore.NewInMemory(), userstore.NewInMemory())
	s.metrics = syncmetrics.New(prometheus.NewRegistry())
	s.service = New(s.orgs, s.contributors, s.github, WithMetrics(s.metrics), WithConcurrency(2))

	org, err := s.orgs.CreateOrganization(s.ctx, orgservice.CreateParams{
		Name:           "acme",
		AccessToken:    "ghp_org",
		TokenExpiresAt: s.now.Add(time.Hour),
	})
	s.Require().NoError(err)
	s.org = org
}

func (s *SyncServiceSuite) expectMembers(token string, members ...models.Member) {
	s.github.EXPECT().VerifyOrganization(gomock.Any(), "ACME", token).Return(nil)
	s.github.EXPECT().ListMembers(gomock.Any(), "ACME", token).Return(members, nil)
}

func (s *SyncServiceSuite) TestSyncCreatesThenLeavesContributorsUnchanged() {
	active := s.now.Add(-2 * time.Hour)
	members := []models.Member{
		{Login: "octocat", Name: "The Octocat", Email: "octo@example.com"},
		{Login: "hubot"},
	}
	s.github.EXPECT().LastActivity(gomock.Any(), "octocat", "ghp_org").Return(&active, nil).Times(2)
	s.github.EXPECT().LastActivity(gomock.Any(), "hubot", "ghp_org").Return(nil, errors.New("boom")).Times(2)

	s.expectMembers("ghp_org", members...)
	report, err := s.service.SyncOrganization(s.ctx, s.org.ID)
	s.Require().NoError(err)
	s.Equal(s.org.ID, report.OrganizationID)
	s.Equal(2, report.MembersSeen)
	s.Equal(2, report.Created)
	s.Zero(report.Failed)

	octocat, err := s.contributors.GetContributorByUsername(s.ctx, "octocat")
	s.Require().NoError(err)
	s.Equal("octo@example.com", octocat.CurrentEmail)
	s.Require().NotNil(octocat.LastActiveDate)
	s.True(active.Equal(*octocat.LastActiveDate))

	hubot, err := s.contributors.GetContributorByUsername(s.ctx, "hubot")
	s.Require().NoError(err)
	s.Equal("hubot@users.noreply.github.com", hubot.CurrentEmail)
	s.Nil(hubot.LastActiveDate)

	s.expectMembers("ghp_org", members...)
	report, err = s.service.SyncOrganization(s.ctx, s.org.ID)
	s.Require().NoError(err)
	s.Equal(2, report.Unchanged)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Runs.WithLabelValues("success")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Members.WithLabelValues("created")))
}

func (s *SyncServiceSuite) TestSyncReconcilesRenamedMember() {
	_, err := s.contributors.CreateContributor(s.ctx, contributorservice.CreateParams{
		Username: "old-login", Email: "dev@example.com", Name: "Dev",
	})
	s.Require().NoError(err)

	active := s.now.Add(-time.Hour)
	s.expectMembers("ghp_org", models.Member{Login: "new-login", Email: "dev@example.com", LastActiveAt: &active})
	report, err := s.service.SyncOrganization(s.ctx, s.org.ID)
	s.Require().NoError(err)
	s.Equal(1, report.Updated)

	c, err := s.contributors.GetContributorByUsername(s.ctx, "new-login")
	s.Require().NoError(err)
	s.Equal([]string{"old-login"}, c.AllKnownUsernames)
}

func (s *SyncServiceSuite) TestExpiredTokenWithoutApp() {
	later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
	s.github.EXPECT().AppConfigured().Return(false)

	_, err := s.service.SyncOrganization(later, s.org.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("Access token for organization 'ACME' has expired", dErrors.MessageOf(err))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Runs.WithLabelValues("failure")))
}

func (s *SyncServiceSuite) TestExpiredTokenIsRefreshedThroughApp() {
	later := s.now.Add(2 * time.Hour)
	ctx := requestcontext.WithTime(context.Background(), later)
	s.github.EXPECT().AppConfigured().Return(true)
	s.github.EXPECT().InstallationToken(gomock.Any(), "ACME").Return("ghs_fresh", later.Add(time.Hour), nil)
	s.expectMembers("ghs_fresh")

	report, err := s.service.SyncOrganization(ctx, s.org.ID)
	s.Require().NoError(err)
	s.Zero(report.MembersSeen)

	token, err := s.orgs.AccessToken(ctx, s.org.ID)
	s.Require().NoError(err)
	s.Equal("ghs_fresh", token)
}

func (s *SyncServiceSuite) TestRefreshToken() {
	s.Run("requires app credentials", func() {
		s.github.EXPECT().AppConfigured().Return(false)
		_, err := s.service.RefreshToken(s.ctx, s.org.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("rotates the stored token", func() {
		s.github.EXPECT().AppConfigured().Return(true)
		s.github.EXPECT().InstallationToken(gomock.Any(), "ACME").Return("ghs_new", s.now.Add(time.Hour), nil)
		org, err := s.service.RefreshToken(s.ctx, s.org.ID)
		s.Require().NoError(err)
		s.True(s.now.Add(time.Hour).Equal(org.TokenExpiresAt))
	})

	s.Run("app not installed on the organization", func() {
		s.github.EXPECT().AppConfigured().Return(true)
		s.github.EXPECT().InstallationToken(gomock.Any(), "ACME").Return("", time.Time{}, fmt.Errorf("find installation: %w", gateway.ErrNotFound))
		_, err := s.service.RefreshToken(s.ctx, s.org.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal("GitHub organization 'ACME' not found", dErrors.MessageOf(err))
	})
}

func (s *SyncServiceSuite) TestGitHubFailures() {
	s.Run("unknown organization", func() {
		s.github.EXPECT().VerifyOrganization(gomock.Any(), "ACME", "ghp_org").Return(gateway.ErrNotFound)
		_, err := s.service.SyncOrganization(s.ctx, s.org.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejected token", func() {
		s.github.EXPECT().VerifyOrganization(gomock.Any(), "ACME", "ghp_org").Return(nil)
		s.github.EXPECT().ListMembers(gomock.Any(), "ACME", "ghp_org").Return(nil, gateway.ErrUnauthorized)
		_, err := s.service.SyncOrganization(s.ctx, s.org.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rate limited", func() {
		s.github.EXPECT().VerifyOrganization(gomock.Any(), "ACME", "ghp_org").Return(gateway.ErrRateLimited)
		_, err := s.service.SyncOrganization(s.ctx, s.org.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("unknown organization id", func() {
		_, err := s.service.SyncOrganization(s.ctx, id.NewOrganizationID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSyncRecordsMemberFailures(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctrl := gomock.NewController(t)

	org := &orgmodels.Organization{ID: id.NewOrganizationID(), Name: "ACME", TokenExpiresAt: now.Add(time.Hour)}
	orgs := mocks.NewMockOrganizations(ctrl)
	orgs.EXPECT().GetOrganization(gomock.Any(), org.ID).Return(org, nil)
	orgs.EXPECT().AccessToken(gomock.Any(), org.ID).Return("tok", nil)

	active := now.Add(-time.Hour)
	github := mocks.NewMockGitHub(ctrl)
	github.EXPECT().VerifyOrganization(gomock.Any(), "ACME", "tok").Return(nil)
	github.EXPECT().ListMembers(gomock.Any(), "ACME", "tok").Return([]models.Member{
		{Login: "zed", LastActiveAt: &active},
		{Login: "amy", LastActiveAt: &active},
		{Login: "bob", LastActiveAt: &active},
	}, nil)

	contributors := mocks.NewMockContributors(ctrl)
	contributors.EXPECT().UpsertFromGitHub(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, identity contributormodels.GitHubIdentity) (*contributormodels.Contributor, contributormodels.UpsertResult, error) {
			switch identity.Login {
			case "bob":
				return &contributormodels.Contributor{}, contributormodels.UpsertUpdated, nil
			case "amy":
				return nil, "", dErrors.New(dErrors.CodeValidation, "Contributor with username 'amy' already exists")
			default:
				return nil, "", dErrors.Wrap(errors.New("connection reset"), dErrors.CodeInternal, "failed to create contributor")
			}
		}).Times(3)

	report, err := New(orgs, contributors, github).SyncOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []models.MemberError{
		{Login: "amy", Error: "Contributor with username 'amy' already exists"},
		{Login: "zed", Error: "internal error"},
	}, report.Errors)
}
