package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	contributormodels "contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/githubsync/gateway"
	syncmetrics "contribution-metrics/internal/githubsync/metrics"
	"contribution-metrics/internal/githubsync/models"
	orgmodels "contribution-metrics/internal/organization/models"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/tracing"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const defaultConcurrency = 8

// Organizations is the slice of the organization service sync relies on.
type Organizations interface {
	ListOrganizations(ctx context.Context) ([]*orgmodels.Organization, error)
	GetOrganization(ctx context.Context, orgID id.OrganizationID) (*orgmodels.Organization, error)
	AccessToken(ctx context.Context, orgID id.OrganizationID) (string, error)
	RotateToken(ctx context.Context, orgID id.OrganizationID, accessToken string, expiresAt time.Time) (*orgmodels.Organization, error)
}

// Contributors reconciles GitHub members into contributors.
type Contributors interface {
	UpsertFromGitHub(ctx context.Context, identity contributormodels.GitHubIdentity) (*contributormodels.Contributor, contributormodels.UpsertResult, error)
}

// GitHub is the outbound GitHub API.
type GitHub interface {
	AppConfigured() bool
	VerifyOrganization(ctx context.Context, org, token string) error
	ListMembers(ctx context.Context, org, token string) ([]models.Member, error)
	LastActivity(ctx context.Context, login, token string) (*time.Time, error)
	InstallationToken(ctx context.Context, org string) (string, time.Time, error)
}

// Service pulls organization members from GitHub into contributors.
type Service struct {
	orgs         Organizations
	contributors Contributors
	github       GitHub
	concurrency  int
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *syncmetrics.Metrics
	tracer       trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *syncmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithConcurrency bounds the member lookups in flight per sync.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTimeout bounds a single organization sync. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

func New(orgs Organizations, contributors Contributors, github GitHub, opts ...Option) *Service {
	s := &Service{
		orgs:         orgs,
		contributors: contributors,
		github:       github,
		concurrency:  defaultConcurrency,
		logger:       slog.New(slog.DiscardHandler),
		tracer:       tracing.Tracer("contribution-metrics/githubsync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// githubErr translates gateway failures for org into domain errors.
func githubErr(err error, org string) error {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("GitHub organization '%s' not found", org))
	case errors.Is(err, gateway.ErrUnauthorized):
		return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("GitHub rejected the access token for organization '%s'", org))
	case errors.Is(err, gateway.ErrRateLimited):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "GitHub rate limit exceeded")
	case errors.Is(err, gateway.ErrAppNotConfigured):
		return errAppNotConfigured()
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "GitHub sync timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "GitHub request failed")
	}
}

func errAppNotConfigured() error {
	return dErrors.New(dErrors.CodeUnavailable, "GitHub App is not configured")
}
