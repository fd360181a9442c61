// Package domain holds typed identifiers shared across modules.
//
// Each aggregate has its own ID type so a contributor id can never be passed
// where a user id is expected. All IDs are non-nil UUIDs once parsed.
package domain

import (
	"github.com/google/uuid"

	dErrors "contribution-metrics/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	ContributorID  uuid.UUID
)

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }
func NewContributorID() ContributorID   { return ContributorID(uuid.New()) }

func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return parsed, nil
}

// ParseUserID parses a user identifier at a trust boundary.
func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID("user id", raw)
	return UserID(u), err
}

// ParseOrganizationID parses an organization identifier at a trust boundary.
func ParseOrganizationID(raw string) (OrganizationID, error) {
	u, err := parseUUID("organization id", raw)
	return OrganizationID(u), err
}

// ParseContributorID parses a contributor identifier at a trust boundary.
func ParseContributorID(raw string) (ContributorID, error) {
	u, err := parseUUID("contributor id", raw)
	return ContributorID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id OrganizationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *OrganizationID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrganizationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ContributorID) String() string { return uuid.UUID(id).String() }
func (id ContributorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ContributorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ContributorID) UnmarshalText(b []byte) error {
	parsed, err := ParseContributorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
