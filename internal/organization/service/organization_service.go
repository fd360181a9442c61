package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"contribution-metrics/internal/organization/models"
	"contribution-metrics/internal/platform/events"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tracing"
	"contribution-metrics/pkg/requestcontext"
)

type CreateParams struct {
	Name           string
	AccessToken    string
	TokenExpiresAt time.Time
}

// UpdateParams carries the fields to change; nil fields are left alone.
type UpdateParams struct {
	Name           *string
	AccessToken    *string
	TokenExpiresAt *time.Time
}

func (s *Service) CreateOrganization(ctx context.Context, params CreateParams) (_ *models.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.CreateOrganization")
	defer tracing.End(span, &err)

	if strings.TrimSpace(params.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Organization name cannot be empty")
	}
	if strings.TrimSpace(params.AccessToken) == "" {
		return nil, errEmptyToken()
	}
	now := requestcontext.Now(ctx)
	org, err := models.NewOrganization(id.NewOrganizationID(), params.Name, params.TokenExpiresAt, now)
	if err != nil {
		return nil, invalid(err)
	}
	duplicate := errDuplicateName(org.Name)

	if _, err := s.orgs.FindByName(ctx, org.Name); err == nil {
		return nil, duplicate
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "failed to check organization name")
	}

	sealed, err := s.sealer.Seal(params.AccessToken)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to protect access token")
	}

	done := s.observe("create")
	err = s.orgs.Create(ctx, org, sealed)
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, duplicate
		}
		return nil, wrapStoreErr(err, "failed to create organization")
	}

	s.logger.InfoContext(ctx, "organization created",
		"organization_id", org.ID.String(),
		"organization", org.Name,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.OrganizationCreated, org)
	s.adjustTotal(ctx)
	return org, nil
}

func (s *Service) ListOrganizations(ctx context.Context) (_ []*models.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.ListOrganizations")
	defer tracing.End(span, &err)

	done := s.observe("list")
	orgs, err := s.orgs.List(ctx)
	done()
	if err != nil {
		return nil, wrapStoreErr(err, "failed to fetch organizations")
	}
	return orgs, nil
}

func (s *Service) GetOrganization(ctx context.Context, orgID id.OrganizationID) (_ *models.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.GetOrganization", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)

	if orgID.IsNil() {
		return nil, errEmptyID()
	}
	done := s.observe("find_by_id")
	org, err := s.orgs.FindByID(ctx, orgID)
	done()
	if err != nil {
		return nil, notFoundOr(err, orgID)
	}
	return org, nil
}

// GetOrganizationByName looks an organization up case-insensitively.
func (s *Service) GetOrganizationByName(ctx context.Context, name string) (_ *models.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.GetOrganizationByName")
	defer tracing.End(span, &err)

	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Organization name cannot be empty")
	}
	done := s.observe("find_by_name")
	org, err := s.orgs.FindByName(ctx, models.NormalizeName(name))
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Organization with name '%s' not found", strings.TrimSpace(name)))
		}
		return nil, wrapStoreErr(err, "failed to fetch organization")
	}
	return org, nil
}

// UpdateOrganization renames the organization and/or replaces its token and
// expiry. A new name must not belong to another organization.
func (s *Service) UpdateOrganization(ctx context.Context, orgID id.OrganizationID, params UpdateParams) (_ *models.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.UpdateOrganization", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)

	if orgID.IsNil() {
		return nil, errEmptyID()
	}
	now := requestcontext.Now(ctx)
	if params.TokenExpiresAt != nil && !params.TokenExpiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "Token expiration date must be in the future")
	}
	if params.AccessToken != nil && strings.TrimSpace(*params.AccessToken) == "" {
		return nil, errEmptyToken()
	}

	var newName string
	if params.Name != nil {
		newName = models.NormalizeName(*params.Name)
		if newName == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "Organization name cannot be empty")
		}
		existing, err := s.orgs.FindByName(ctx, newName)
		if err == nil && existing.ID != orgID {
			return nil, errDuplicateName(newName)
		}
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, wrapStoreErr(err, "failed to check organization name")
		}
	}

	apply := func(current *models.Organization) (*models.Organization, error) {
		next := current
		if params.Name != nil {
			renamed, err := next.Rename(newName, now)
			if err != nil {
				return nil, err
			}
			next = renamed
		}
		if params.TokenExpiresAt != nil {
			updated, err := next.UpdateToken(*params.TokenExpiresAt, now)
			if err != nil {
				return nil, err
			}
			next = updated
		}
		if next == current {
			touched := *current
			touched.UpdatedAt = now
			next = &touched
		}
		return next, nil
	}

	done := s.observe("update")
	var updated *models.Organization
	if params.AccessToken != nil {
		sealed, sealErr := s.sealer.Seal(*params.AccessToken)
		if sealErr != nil {
			done()
			return nil, dErrors.Wrap(sealErr, dErrors.CodeInternal, "failed to protect access token")
		}
		updated, err = s.orgs.RotateToken(ctx, orgID, sealed, apply)
	} else {
		updated, err = s.orgs.Execute(ctx, orgID, apply)
	}
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, errDuplicateName(newName)
		}
		return nil, notFoundOr(invalid(err), orgID)
	}

	s.logger.InfoContext(ctx, "organization updated",
		"organization_id", orgID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.OrganizationUpdated, updated)
	return updated, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, orgID id.OrganizationID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.DeleteOrganization", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)

	if orgID.IsNil() {
		return errEmptyID()
	}
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return notFoundOr(err, orgID)
	}

	done := s.observe("delete")
	err = s.orgs.Delete(ctx, orgID)
	done()
	if err != nil {
		return notFoundOr(err, orgID)
	}

	s.logger.InfoContext(ctx, "organization deleted",
		"organization_id", orgID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.OrganizationDeleted, org)
	s.adjustTotal(ctx)
	return nil
}

// RotateToken stores a freshly issued access token and its expiry atomically.
func (s *Service) RotateToken(ctx context.Context, orgID id.OrganizationID, accessToken string, expiresAt time.Time) (_ *models.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.RotateToken", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)
	defer func() {
		if s.metrics != nil {
			s.metrics.IncrementTokenRefresh(outcome(err))
		}
	}()

	if orgID.IsNil() {
		return nil, errEmptyID()
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, errEmptyToken()
	}
	sealed, err := s.sealer.Seal(accessToken)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to protect access token")
	}

	now := requestcontext.Now(ctx)
	done := s.observe("rotate_token")
	org, err := s.orgs.RotateToken(ctx, orgID, sealed, func(current *models.Organization) (*models.Organization, error) {
		return current.UpdateToken(expiresAt, now)
	})
	done()
	if err != nil {
		return nil, notFoundOr(invalid(err), orgID)
	}

	s.logger.InfoContext(ctx, "organization token rotated",
		"organization_id", orgID.String(),
		"expires_at", expiresAt,
	)
	s.emit(ctx, events.OrganizationUpdated, org)
	return org, nil
}

// AccessToken returns the plaintext token for outbound GitHub calls. It is
// never exposed over HTTP.
func (s *Service) AccessToken(ctx context.Context, orgID id.OrganizationID) (_ string, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organization.AccessToken", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)

	if orgID.IsNil() {
		return "", errEmptyID()
	}
	stored, err := s.orgs.AccessToken(ctx, orgID)
	if err != nil {
		return "", notFoundOr(err, orgID)
	}
	token, err := s.sealer.Open(stored)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access token")
	}
	return token, nil
}

func notFoundOr(err error, orgID id.OrganizationID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("Organization with ID '%s' not found", orgID))
	}
	return wrapStoreErr(err, "failed to access organization")
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func errEmptyID() error {
	return dErrors.New(dErrors.CodeValidation, "Organization ID cannot be empty")
}

func errEmptyToken() error {
	return dErrors.New(dErrors.CodeValidation, "Access token cannot be empty")
}

func errDuplicateName(name string) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Organization '%s' already exists", name))
}
