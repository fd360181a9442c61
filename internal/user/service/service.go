package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"contribution-metrics/internal/platform/events"
	usermetrics "contribution-metrics/internal/user/metrics"
	"contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tracing"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists users. Implementations return sentinel.ErrNotFound for missing
// rows and sentinel.ErrAlreadyUsed when the email unique constraint fires.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ListByManager(ctx context.Context, managerID id.UserID) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Execute(ctx context.Context, userID id.UserID, fn func(*models.User) (*models.User, error)) (*models.User, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// ContributorUnlinker clears contributor links to a user. DeleteUser calls it
// before removing the user row so every unlinked contributor is reported.
type ContributorUnlinker interface {
	UnlinkUser(ctx context.Context, userID id.UserID) error
}

// Service orchestrates user registration and profile management.
type Service struct {
	users     Store
	unlinker  ContributorUnlinker
	logger    *slog.Logger
	metrics   *usermetrics.Metrics
	publisher events.Publisher
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *usermetrics.Metrics) Option {
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

func WithContributorUnlinker(u ContributorUnlinker) Option {
	return func(s *Service) {
		s.unlinker = u
	}
}

func New(users Store, opts ...Option) *Service {
	s := &Service{
		users:  users,
		logger: slog.New(slog.DiscardHandler),
		tracer: tracing.Tracer("contribution-metrics/user"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshMetrics resets the users_total gauge from the store.
func (s *Service) RefreshMetrics(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return wrapStoreErr(err, "failed to count users")
	}
	s.metrics.SetUsersTotal(n)
	return nil
}

func (s *Service) emit(ctx context.Context, typ events.Type, user *models.User) {
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, typ, user.ID.String(), user))
}

func (s *Service) observe(op string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() { s.metrics.ObserveQuery(op, start) }
}

// invalid converts a domain invariant violation into a client validation error.
func invalid(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return err
}

// wrapStoreErr maps infrastructure failures that have no domain meaning.
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
