package models

import (
	"strings"
	"time"

	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/email"
)

// User is an internal team member that GitHub contributors can be linked to.
//
// Invariants:
//   - Email matches the address pattern and is stored lowercased
//   - Name is non-empty after trimming
//   - ManagerID never equals ID
//   - Optional strings are trimmed; blank values are stored as nil
type User struct {
	ID            id.UserID     `json:"id"`
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	Company       *string       `json:"company"`
	Role          Role          `json:"role"`
	RoleType      RoleType      `json:"roleType"`
	GrowthLevel   *string       `json:"growthLevel"`
	OrgFunction   *OrgFunction  `json:"orgFunction"`
	Pillar        *string       `json:"pillar"`
	Tribe         *string       `json:"tribe"`
	Squad         *string       `json:"squad"`
	JobTitle      *string       `json:"jobTitle"`
	ManagerID     *id.UserID    `json:"managerId"`
	AppAccessRole AppAccessRole `json:"appAccessRole"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// NewUserParams carries the caller-supplied attributes of a new user.
// Zero-valued enums fall back to their defaults.
type NewUserParams struct {
	Email         string
	Name          string
	Company       *string
	Role          Role
	RoleType      RoleType
	GrowthLevel   *string
	OrgFunction   *OrgFunction
	Pillar        *string
	Tribe         *string
	Squad         *string
	JobTitle      *string
	ManagerID     *id.UserID
	AppAccessRole AppAccessRole
}

// ProfileUpdate lists the fields UpdateProfile may change. Nil fields are left
// untouched. A pointer to a blank string clears an optional field; the Clear*
// flags clear the non-string optionals.
type ProfileUpdate struct {
	Name             *string
	Company          *string
	Role             *Role
	RoleType         *RoleType
	GrowthLevel      *string
	OrgFunction      *OrgFunction
	ClearOrgFunction bool
	Pillar           *string
	Tribe            *string
	Squad            *string
	JobTitle         *string
	ManagerID        *id.UserID
	ClearManager     bool
	AppAccessRole    *AppAccessRole
}

func NewUser(userID id.UserID, p NewUserParams, now time.Time) (*User, error) {
	if !email.IsValid(p.Email) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "Invalid email format")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "Name cannot be empty")
	}
	if p.ManagerID != nil && *p.ManagerID == userID {
		return nil, errSelfManaged()
	}

	role := p.Role
	if role == "" {
		role = RoleProductEngineer
	}
	roleType := p.RoleType
	if roleType == "" {
		roleType = RoleTypeIC
	}
	access := p.AppAccessRole
	if access == "" {
		access = AppAccessIC
	}
	if err := validateEnums(role, roleType, p.OrgFunction, access); err != nil {
		return nil, err
	}

	return &User{
		ID:            userID,
		Email:         email.Normalize(p.Email),
		Name:          name,
		Company:       trimOptional(p.Company),
		Role:          role,
		RoleType:      roleType,
		GrowthLevel:   trimOptional(p.GrowthLevel),
		OrgFunction:   copyPtr(p.OrgFunction),
		Pillar:        trimOptional(p.Pillar),
		Tribe:         trimOptional(p.Tribe),
		Squad:         trimOptional(p.Squad),
		JobTitle:      trimOptional(p.JobTitle),
		ManagerID:     copyPtr(p.ManagerID),
		AppAccessRole: access,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// UpdateProfile returns a copy of u with the supplied fields applied.
// The email address is never changed here; use UpdateEmail.
func (u User) UpdateProfile(upd ProfileUpdate, now time.Time) (*User, error) {
	next := u.Clone()

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "Name cannot be empty")
		}
		next.Name = name
	}
	if upd.ManagerID != nil && *upd.ManagerID == u.ID {
		return nil, errSelfManaged()
	}

	if upd.Company != nil {
		next.Company = trimOptional(upd.Company)
	}
	if upd.Role != nil {
		next.Role = *upd.Role
	}
	if upd.RoleType != nil {
		next.RoleType = *upd.RoleType
	}
	if upd.GrowthLevel != nil {
		next.GrowthLevel = trimOptional(upd.GrowthLevel)
	}
	switch {
	case upd.ClearOrgFunction:
		next.OrgFunction = nil
	case upd.OrgFunction != nil:
		next.OrgFunction = copyPtr(upd.OrgFunction)
	}
	if upd.Pillar != nil {
		next.Pillar = trimOptional(upd.Pillar)
	}
	if upd.Tribe != nil {
		next.Tribe = trimOptional(upd.Tribe)
	}
	if upd.Squad != nil {
		next.Squad = trimOptional(upd.Squad)
	}
	if upd.JobTitle != nil {
		next.JobTitle = trimOptional(upd.JobTitle)
	}
	switch {
	case upd.ClearManager:
		next.ManagerID = nil
	case upd.ManagerID != nil:
		next.ManagerID = copyPtr(upd.ManagerID)
	}
	if upd.AppAccessRole != nil {
		next.AppAccessRole = *upd.AppAccessRole
	}

	if err := validateEnums(next.Role, next.RoleType, next.OrgFunction, next.AppAccessRole); err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	return next, nil
}

// UpdateEmail returns a copy of u with a new, normalized email address.
func (u User) UpdateEmail(address string, now time.Time) (*User, error) {
	if !email.IsValid(address) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "Invalid email format")
	}
	next := u.Clone()
	next.Email = email.Normalize(address)
	next.UpdatedAt = now
	return next, nil
}

func (u User) IsManager() bool {
	return u.RoleType == RoleTypeMG
}

func (u User) IsIndividualContributor() bool {
	return u.RoleType == RoleTypeIC
}

func (u User) HasAdminAccess() bool {
	return u.AppAccessRole == AppAccessAdministrator
}

// ReportsTo reports whether managerID is u's direct manager.
func (u User) ReportsTo(managerID id.UserID) bool {
	return u.ManagerID != nil && *u.ManagerID == managerID
}

// Clone returns a deep copy of u.
func (u User) Clone() *User {
	c := u
	c.Company = copyPtr(u.Company)
	c.GrowthLevel = copyPtr(u.GrowthLevel)
	c.OrgFunction = copyPtr(u.OrgFunction)
	c.Pillar = copyPtr(u.Pillar)
	c.Tribe = copyPtr(u.Tribe)
	c.Squad = copyPtr(u.Squad)
	c.JobTitle = copyPtr(u.JobTitle)
	c.ManagerID = copyPtr(u.ManagerID)
	return &c
}

func validateEnums(role Role, roleType RoleType, fn *OrgFunction, access AppAccessRole) error {
	if !role.IsValid() {
		return invalidEnum("role", role)
	}
	if !roleType.IsValid() {
		return invalidEnum("roleType", roleType)
	}
	if fn != nil && !fn.IsValid() {
		return invalidEnum("orgFunction", *fn)
	}
	if !access.IsValid() {
		return invalidEnum("appAccessRole", access)
	}
	return nil
}

func errSelfManaged() error {
	return dErrors.New(dErrors.CodeInvariantViolation, "User cannot be their own manager")
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
