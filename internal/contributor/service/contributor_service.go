package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/platform/events"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/email"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tracing"
	"contribution-metrics/pkg/requestcontext"
)

type CreateParams struct {
	Username       string
	Email          string
	Name           string
	KnownUsernames []string
	KnownEmails    []string
	KnownNames     []string
	UserID         *id.UserID
	Status         *models.Status
	LastActiveDate *time.Time
}

// UpdateParams carries the fields to change; nil fields are left alone. Any
// of Username, Email and Name triggers an identity update in which the others
// keep their current value. Known aliases are merged, never replaced.
type UpdateParams struct {
	Username       *string
	Email          *string
	Name           *string
	KnownUsernames []string
	KnownEmails    []string
	KnownNames     []string
	Status         *models.Status
	LastActiveDate *time.Time
}

// ListParams filters a listing. Nil Limit and Offset take the defaults.
type ListParams struct {
	UserID   *id.UserID
	Username string
	Email    string
	Limit    *int
	Offset   *int
}

func (s *Service) CreateContributor(ctx context.Context, params CreateParams) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.CreateContributor")
	defer tracing.End(span, &err)

	now := requestcontext.Now(ctx)
	c, err := models.NewContributor(id.NewContributorID(), models.NewContributorParams{
		Username:       params.Username,
		Email:          params.Email,
		Name:           params.Name,
		KnownUsernames: params.KnownUsernames,
		KnownEmails:    params.KnownEmails,
		KnownNames:     params.KnownNames,
	}, now)
	if err != nil {
		return nil, invalid(err)
	}
	if err := s.requireUsernameFree(ctx, c.CurrentUsername, c.ID); err != nil {
		return nil, err
	}
	if params.UserID != nil {
		if err := s.requireUser(ctx, *params.UserID); err != nil {
			return nil, err
		}
		if c, err = c.LinkToUser(*params.UserID, now); err != nil {
			return nil, invalid(err)
		}
	}
	if params.Status != nil {
		if c, err = c.UpdateStatus(*params.Status, now); err != nil {
			return nil, invalid(err)
		}
	}
	if params.LastActiveDate != nil {
		c = c.UpdateLastActiveDate(*params.LastActiveDate, now)
	}

	if err := s.insert(ctx, c); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "contributor created",
		"contributor_id", c.ID.String(),
		"username", c.CurrentUsername,
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

func (s *Service) ListContributors(ctx context.Context, params ListParams) (_ *models.Page, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.ListContributors")
	defer tracing.End(span, &err)

	filter := models.ListFilter{
		UserID:   params.UserID,
		Username: strings.TrimSpace(params.Username),
		Email:    email.Normalize(params.Email),
		Limit:    models.DefaultLimit,
	}
	if params.Limit != nil {
		if *params.Limit < 1 || *params.Limit > models.MaxLimit {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Limit must be between 1 and %d", models.MaxLimit))
		}
		filter.Limit = *params.Limit
	}
	if params.Offset != nil {
		if *params.Offset < 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "Offset must be greater than or equal to 0")
		}
		filter.Offset = *params.Offset
	}

	done := s.observe("list")
	data, total, err := s.contributors.List(ctx, filter)
	done()
	if err != nil {
		return nil, wrapStoreErr(err, "failed to fetch contributors")
	}
	return &models.Page{Data: data, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *Service) GetContributor(ctx context.Context, contributorID id.ContributorID) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.GetContributor", attribute.String("contributor.id", contributorID.String()))
	defer tracing.End(span, &err)

	if contributorID.IsNil() {
		return nil, errEmptyID()
	}
	done := s.observe("find_by_id")
	c, err := s.contributors.FindByID(ctx, contributorID)
	done()
	if err != nil {
		return nil, notFoundOr(err, contributorID)
	}
	return c, nil
}

func (s *Service) GetContributorByUsername(ctx context.Context, username string) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.GetContributorByUsername")
	defer tracing.End(span, &err)

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Username cannot be empty")
	}
	done := s.observe("find_by_username")
	c, err := s.contributors.FindByUsername(ctx, username)
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Contributor with username '%s' not found", username))
		}
		return nil, wrapStoreErr(err, "failed to fetch contributor")
	}
	return c, nil
}

func (s *Service) GetContributorByEmail(ctx context.Context, address string) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.GetContributorByEmail")
	defer tracing.End(span, &err)

	normalized := email.Normalize(address)
	if normalized == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email cannot be empty")
	}
	done := s.observe("find_by_email")
	c, err := s.contributors.FindByEmail(ctx, normalized)
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Contributor with email '%s' not found", normalized))
		}
		return nil, wrapStoreErr(err, "failed to fetch contributor")
	}
	return c, nil
}

func (s *Service) UpdateContributor(ctx context.Context, contributorID id.ContributorID, params UpdateParams) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.UpdateContributor", attribute.String("contributor.id", contributorID.String()))
	defer tracing.End(span, &err)

	if contributorID.IsNil() {
		return nil, errEmptyID()
	}
	if params.Username != nil {
		if err := s.requireUsernameFree(ctx, strings.TrimSpace(*params.Username), contributorID); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	updated, err := s.mutate(ctx, contributorID, "update", func(c *models.Contributor) (*models.Contributor, error) {
		next := c
		var err error
		if params.Username != nil || params.Email != nil || params.Name != nil {
			next, err = next.UpdateCurrentInfo(
				valueOr(params.Username, c.CurrentUsername),
				valueOr(params.Email, c.CurrentEmail),
				valueOr(params.Name, c.CurrentName),
				now,
			)
			if err != nil {
				return nil, err
			}
		}
		if len(params.KnownUsernames)+len(params.KnownEmails)+len(params.KnownNames) > 0 {
			if next, err = next.AddAllKnownData(params.KnownUsernames, params.KnownEmails, params.KnownNames, now); err != nil {
				return nil, err
			}
		}
		if params.Status != nil {
			if next, err = next.UpdateStatus(*params.Status, now); err != nil {
				return nil, err
			}
		}
		if params.LastActiveDate != nil {
			next = next.UpdateLastActiveDate(*params.LastActiveDate, now)
		}
		if next == c {
			next = c.Clone()
			next.UpdatedAt = now
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) && params.Username != nil {
			return nil, errDuplicateUsername(strings.TrimSpace(*params.Username))
		}
		return nil, err
	}
	s.emit(ctx, events.ContributorUpdated, updated)
	return updated, nil
}

// LinkToUser associates the contributor with an existing user.
func (s *Service) LinkToUser(ctx context.Context, contributorID id.ContributorID, userID id.UserID) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.LinkToUser",
		attribute.String("contributor.id", contributorID.String()),
		attribute.String("user.id", userID.String()),
	)
	defer tracing.End(span, &err)

	if contributorID.IsNil() {
		return nil, errEmptyID()
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "User ID cannot be empty")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	linked, err := s.mutate(ctx, contributorID, "link", func(c *models.Contributor) (*models.Contributor, error) {
		return c.LinkToUser(userID, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrBrokenReference) {
			return nil, errUserNotFound(userID)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "contributor linked to user",
		"contributor_id", contributorID.String(),
		"user_id", userID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.ContributorLinked, linked)
	s.refreshGauges(ctx)
	return linked, nil
}

func (s *Service) UnlinkFromUser(ctx context.Context, contributorID id.ContributorID) (_ *models.Contributor, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.UnlinkFromUser", attribute.String("contributor.id", contributorID.String()))
	defer tracing.End(span, &err)

	if contributorID.IsNil() {
		return nil, errEmptyID()
	}
	now := requestcontext.Now(ctx)
	unlinked, err := s.mutate(ctx, contributorID, "unlink", func(c *models.Contributor) (*models.Contributor, error) {
		return c.UnlinkFromUser(now), nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.ContributorUnlinked, unlinked)
	s.refreshGauges(ctx)
	return unlinked, nil
}

func (s *Service) DeleteContributor(ctx context.Context, contributorID id.ContributorID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.DeleteContributor", attribute.String("contributor.id", contributorID.String()))
	defer tracing.End(span, &err)

	if contributorID.IsNil() {
		return errEmptyID()
	}
	c, err := s.contributors.FindByID(ctx, contributorID)
	if err != nil {
		return notFoundOr(err, contributorID)
	}
	done := s.observe("delete")
	err = s.contributors.Delete(ctx, contributorID)
	done()
	if err != nil {
		return notFoundOr(err, contributorID)
	}
	s.logger.InfoContext(ctx, "contributor deleted",
		"contributor_id", contributorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.ContributorDeleted, c)
	s.refreshGauges(ctx)
	return nil
}

// UnlinkUser clears the links of every contributor attached to userID. It must
// run before the user is deleted; an event is emitted per contributor whose
// link was actually cleared.
func (s *Service) UnlinkUser(ctx context.Context, userID id.UserID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.UnlinkUser", attribute.String("user.id", userID.String()))
	defer tracing.End(span, &err)

	done := s.observe("unlink_user")
	unlinked, err := s.contributors.UnlinkUser(ctx, userID, requestcontext.Now(ctx))
	done()
	if err != nil {
		return wrapStoreErr(err, "failed to unlink contributors")
	}
	for _, c := range unlinked {
		s.emit(ctx, events.ContributorUnlinked, c)
	}
	if len(unlinked) > 0 {
		s.logger.InfoContext(ctx, "contributors unlinked from user",
			"user_id", userID.String(),
			"count", len(unlinked),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.refreshGauges(ctx)
	}
	return nil
}

// UpsertFromGitHub creates or reconciles the contributor behind a GitHub
// member. The member is matched on current username first, then on current
// email so renamed accounts keep their history. A hidden email or name keeps
// the stored value; a brand new member without one falls back to the GitHub
// noreply address and a name derived from it.
func (s *Service) UpsertFromGitHub(ctx context.Context, identity models.GitHubIdentity) (_ *models.Contributor, _ models.UpsertResult, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "contributor.UpsertFromGitHub", attribute.String("github.login", identity.Login))
	defer tracing.End(span, &err)

	login := strings.TrimSpace(identity.Login)
	if login == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "Username cannot be empty")
	}
	address := email.Normalize(identity.Email)
	if address != "" && !email.IsValid(address) {
		address = ""
	}

	existing, err := s.matchIdentity(ctx, login, address)
	if err != nil {
		return nil, "", err
	}
	if existing == nil {
		c, err := s.CreateContributor(ctx, newMemberParams(login, address, identity))
		if err != nil {
			return nil, "", err
		}
		return c, models.UpsertCreated, nil
	}

	now := requestcontext.Now(ctx)
	changed := false
	updated, err := s.mutate(ctx, existing.ID, "upsert", func(c *models.Contributor) (*models.Contributor, error) {
		next, err := c.UpdateCurrentInfo(
			login,
			firstNonEmpty(address, c.CurrentEmail),
			firstNonEmpty(strings.TrimSpace(identity.Name), c.CurrentName),
			now,
		)
		if err != nil {
			return nil, err
		}
		if identity.LastActiveAt != nil && (c.LastActiveDate == nil || identity.LastActiveAt.After(*c.LastActiveDate)) {
			next = next.UpdateLastActiveDate(*identity.LastActiveAt, now)
		}
		changed = !sameIdentity(c, next)
		if !changed {
			return c, nil
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, "", errDuplicateUsername(login)
		}
		return nil, "", err
	}
	if !changed {
		return updated, models.UpsertUnchanged, nil
	}
	s.emit(ctx, events.ContributorUpdated, updated)
	return updated, models.UpsertUpdated, nil
}

func (s *Service) matchIdentity(ctx context.Context, login, address string) (*models.Contributor, error) {
	c, err := s.contributors.FindByUsername(ctx, login)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "failed to fetch contributor")
	}
	if address == "" {
		return nil, nil
	}
	c, err = s.contributors.FindByEmail(ctx, address)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "failed to fetch contributor")
	}
	return nil, nil
}

func (s *Service) insert(ctx context.Context, c *models.Contributor) error {
	done := s.observe("create")
	err := s.contributors.Create(ctx, c)
	done()
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return errDuplicateUsername(c.CurrentUsername)
		case errors.Is(err, sentinel.ErrBrokenReference) && c.UserID != nil:
			return errUserNotFound(*c.UserID)
		}
		return wrapStoreErr(err, "failed to create contributor")
	}
	s.emit(ctx, events.ContributorCreated, c)
	s.refreshGauges(ctx)
	return nil
}

// mutate runs fn through the store and translates the outcome. Sentinels the
// caller needs to distinguish (ErrAlreadyUsed, ErrBrokenReference) are
// returned unchanged.
func (s *Service) mutate(ctx context.Context, contributorID id.ContributorID, op string, fn func(*models.Contributor) (*models.Contributor, error)) (*models.Contributor, error) {
	done := s.observe(op)
	c, err := s.contributors.Execute(ctx, contributorID, fn)
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrBrokenReference) {
			return nil, err
		}
		return nil, notFoundOr(invalid(err), contributorID)
	}
	return c, nil
}

func (s *Service) requireUsernameFree(ctx context.Context, username string, self id.ContributorID) error {
	if username == "" {
		return nil
	}
	existing, err := s.contributors.FindByUsername(ctx, username)
	if err == nil && existing.ID != self {
		return errDuplicateUsername(username)
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return wrapStoreErr(err, "failed to check username")
	}
	return nil
}

func (s *Service) requireUser(ctx context.Context, userID id.UserID) error {
	if s.users == nil {
		return nil
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return errUserNotFound(userID)
		}
		return wrapStoreErr(err, "failed to fetch user")
	}
	return nil
}

func newMemberParams(login, address string, identity models.GitHubIdentity) CreateParams {
	name := strings.TrimSpace(identity.Name)
	if address == "" {
		address = strings.ToLower(login) + "@users.noreply.github.com"
	}
	if name == "" {
		name = email.DeriveDisplayName(address)
	}
	if name == "" {
		name = login
	}
	return CreateParams{
		Username:       login,
		Email:          address,
		Name:           name,
		LastActiveDate: identity.LastActiveAt,
	}
}

func sameIdentity(a, b *models.Contributor) bool {
	if a.CurrentUsername != b.CurrentUsername || a.CurrentEmail != b.CurrentEmail || a.CurrentName != b.CurrentName {
		return false
	}
	switch {
	case a.LastActiveDate == nil && b.LastActiveDate == nil:
		return true
	case a.LastActiveDate == nil || b.LastActiveDate == nil:
		return false
	default:
		return a.LastActiveDate.Equal(*b.LastActiveDate)
	}
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func notFoundOr(err error, contributorID id.ContributorID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Contributor with ID '%s' not found", contributorID))
	}
	return wrapStoreErr(err, "failed to access contributor")
}

func errEmptyID() error {
	return dErrors.New(dErrors.CodeValidation, "Contributor ID cannot be empty")
}

func errDuplicateUsername(username string) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Contributor with username '%s' already exists", username))
}

func errUserNotFound(userID id.UserID) error {
	return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("User with ID '%s' not found", userID))
}
