package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	orgmetrics "contribution-metrics/internal/organization/metrics"
	"contribution-metrics/internal/organization/models"
	"contribution-metrics/internal/organization/secrets"
	"contribution-metrics/internal/platform/events"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tracing"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists organizations together with their access token. Names are
// passed in canonical (uppercase) form. Implementations return
// sentinel.ErrNotFound for missing rows and sentinel.ErrAlreadyUsed when the
// name unique constraint fires.
type Store interface {
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

// Service manages registered GitHub organizations and their access tokens.
type Service struct {
	orgs      Store
	sealer    *secrets.Sealer
	logger    *slog.Logger
	metrics   *orgmetrics.Metrics
	publisher events.Publisher
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *orgmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithSealer encrypts access tokens before they reach the store. Without it
// tokens are stored as given.
func WithSealer(sealer *secrets.Sealer) Option {
	return func(s *Service) {
		s.sealer = sealer
	}
}

func New(orgs Store, opts ...Option) *Service {
	s := &Service{
		orgs:   orgs,
		logger: slog.New(slog.DiscardHandler),
		tracer: tracing.Tracer("contribution-metrics/organization"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshMetrics resets the github_organizations_total gauge from the store.
func (s *Service) RefreshMetrics(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	n, err := s.orgs.Count(ctx)
	if err != nil {
		return wrapStoreErr(err, "failed to count organizations")
	}
	s.metrics.SetOrganizationsTotal(n)
	return nil
}

func (s *Service) emit(ctx context.Context, typ events.Type, org *models.Organization) {
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, typ, org.ID.String(), org))
}

func (s *Service) observe(op string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() { s.metrics.ObserveQuery(op, start) }
}

func (s *Service) adjustTotal(ctx context.Context) {
	if err := s.RefreshMetrics(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh organization gauge", "error", err)
	}
}

func invalid(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return err
}

func wrapStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "database unavailable")
	case errors.As(err, new(*dErrors.Error)):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
