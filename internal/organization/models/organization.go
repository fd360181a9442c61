package models

import (
	"strings"
	"time"

	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
)

// Organization is a GitHub organization whose members are tracked.
//
// Invariants:
//   - Name is non-empty and uppercase
//   - TokenExpiresAt is after the clock at creation and at every token update
//
// The access token is not part of the aggregate. It is held by the store and
// only crosses the service boundary on create, rotation and gateway lookups.
type Organization struct {
	ID             id.OrganizationID `json:"id"`
	Name           string            `json:"name"`
	TokenExpiresAt time.Time         `json:"tokenExpiresAt"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// View is the API representation with the derived expiry flag.
type View struct {
	Organization
	TokenExpired bool `json:"tokenExpired"`
}

// NormalizeName canonicalizes an organization name for storage and lookup.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func NewOrganization(orgID id.OrganizationID, name string, tokenExpiresAt, now time.Time) (*Organization, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, errEmptyName()
	}
	if !tokenExpiresAt.After(now) {
		return nil, errExpiryNotFuture()
	}
	return &Organization{
		ID:             orgID,
		Name:           normalized,
		TokenExpiresAt: tokenExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsTokenExpired reports whether the token expired strictly before now.
func (o Organization) IsTokenExpired(now time.Time) bool {
	return o.TokenExpiresAt.Before(now)
}

// UpdateToken returns a copy with a new token expiry.
func (o Organization) UpdateToken(expiresAt, now time.Time) (*Organization, error) {
	if !expiresAt.After(now) {
		return nil, errExpiryNotFuture()
	}
	o.TokenExpiresAt = expiresAt
	o.UpdatedAt = now
	return &o, nil
}

// Rename returns a copy carrying the canonical form of name.
func (o Organization) Rename(name string, now time.Time) (*Organization, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, errEmptyName()
	}
	o.Name = normalized
	o.UpdatedAt = now
	return &o, nil
}

func (o Organization) View(now time.Time) View {
	return View{Organization: o, TokenExpired: o.IsTokenExpired(now)}
}

func errEmptyName() error {
	return dErrors.New(dErrors.CodeInvariantViolation, "Organization name cannot be empty")
}

func errExpiryNotFuture() error {
	return dErrors.New(dErrors.CodeInvariantViolation, "Token expiration date must be in the future")
}
