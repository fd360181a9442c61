package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	contributormetrics "contribution-metrics/internal/contributor/metrics"
	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/platform/events"
	usermodels "contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tracing"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists contributors. Implementations return sentinel.ErrNotFound for
// missing rows, sentinel.ErrAlreadyUsed when the current username is taken and
// sentinel.ErrBrokenReference when a link points at a missing user.
type Store interface {
	Create(ctx context.Context, c *models.Contributor) error
	FindByID(ctx context.Context, contributorID id.ContributorID) (*models.Contributor, error)
	FindByUsername(ctx context.Context, username string) (*models.Contributor, error)
	FindByEmail(ctx context.Context, email string) (*models.Contributor, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Contributor, int, error)
	Count(ctx context.Context) (total, linked int, err error)
	Execute(ctx context.Context, contributorID id.ContributorID, fn func(*models.Contributor) (*models.Contributor, error)) (*models.Contributor, error)
	Delete(ctx context.Context, contributorID id.ContributorID) error
	// UnlinkUser clears every link to userID and returns the contributors
	// whose link it cleared.
	UnlinkUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.Contributor, error)
}

// UserFinder resolves the users contributors link to.
type UserFinder interface {
	FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
}

// Service manages GitHub contributors and their links to users.
type Service struct {
	contributors Store
	users        UserFinder
	logger       *slog.Logger
	metrics      *contributormetrics.Metrics
	publisher    events.Publisher
	tracer       trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *contributormetrics.Metrics) Option {
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

func New(contributors Store, users UserFinder, opts ...Option) *Service {
	s := &Service{
		contributors: contributors,
		users:        users,
		logger:       slog.New(slog.DiscardHandler),
		tracer:       tracing.Tracer("contribution-metrics/contributor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshMetrics resets the contributor gauges from the store.
func (s *Service) RefreshMetrics(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	total, linked, err := s.contributors.Count(ctx)
	if err != nil {
		return wrapStoreErr(err, "failed to count contributors")
	}
	s.metrics.SetTotals(total, linked)
	return nil
}

func (s *Service) refreshGauges(ctx context.Context) {
	if err := s.RefreshMetrics(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh contributor gauges", "error", err)
	}
}

func (s *Service) emit(ctx context.Context, typ events.Type, c *models.Contributor) {
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, typ, c.ID.String(), c))
}

func (s *Service) observe(op string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() { s.metrics.ObserveQuery(op, start) }
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
