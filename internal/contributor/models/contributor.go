package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/email"
	pstrings "contribution-metrics/pkg/platform/strings"
)

// Status is the activity flag of a contributor.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Contributor is a GitHub identity together with every alias it has been
// seen under.
//
// Invariants:
//   - current fields are non-empty and trimmed; CurrentEmail is lowercase
//   - every email, current or known, matches the email pattern
//   - known-alias lists hold no duplicates and no blanks
//
// A superseded current value is never dropped: it is demoted to the matching
// known-alias list. Methods never mutate the receiver.
type Contributor struct {
	ID                id.ContributorID `json:"id"`
	CurrentUsername   string           `json:"currentUsername"`
	CurrentEmail      string           `json:"currentEmail"`
	CurrentName       string           `json:"currentName"`
	AllKnownUsernames []string         `json:"allKnownUsernames"`
	AllKnownEmails    []string         `json:"allKnownEmails"`
	AllKnownNames     []string         `json:"allKnownNames"`
	UserID            *id.UserID       `json:"userId"`
	LastActiveDate    *time.Time       `json:"lastActiveDate"`
	Status            Status           `json:"status"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type NewContributorParams struct {
	Username       string
	Email          string
	Name           string
	KnownUsernames []string
	KnownEmails    []string
	KnownNames     []string
}

func NewContributor(contributorID id.ContributorID, p NewContributorParams, now time.Time) (*Contributor, error) {
	if strings.TrimSpace(p.Username) == "" {
		return nil, invariant("Current username cannot be empty")
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, invariant("Current email cannot be empty")
	}
	if !email.IsValid(p.Email) {
		return nil, invariant("Invalid email format")
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, invariant("Current name cannot be empty")
	}
	for _, known := range p.KnownEmails {
		if strings.TrimSpace(known) != "" && !email.IsValid(known) {
			return nil, invariant(fmt.Sprintf("Invalid historical email format: %s", known))
		}
	}

	return &Contributor{
		ID:                contributorID,
		CurrentUsername:   pstrings.Trim(p.Username),
		CurrentEmail:      email.Normalize(p.Email),
		CurrentName:       pstrings.Trim(p.Name),
		AllKnownUsernames: pstrings.Merge(nil, p.KnownUsernames, pstrings.Trim),
		AllKnownEmails:    pstrings.Merge(nil, p.KnownEmails, pstrings.TrimLower),
		AllKnownNames:     pstrings.Merge(nil, p.KnownNames, pstrings.Trim),
		Status:            StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// UpdateCurrentInfo replaces the current identity. Each current value that
// changes is appended to its known-alias list first.
func (c Contributor) UpdateCurrentInfo(username, address, name string, now time.Time) (*Contributor, error) {
	if strings.TrimSpace(username) == "" {
		return nil, invariant("Username cannot be empty")
	}
	if strings.TrimSpace(address) == "" {
		return nil, invariant("Email cannot be empty")
	}
	if !email.IsValid(address) {
		return nil, invariant("Invalid email format")
	}
	if strings.TrimSpace(name) == "" {
		return nil, invariant("Name cannot be empty")
	}

	next := c.clone()
	next.AllKnownUsernames, next.CurrentUsername = demote(c.AllKnownUsernames, c.CurrentUsername, pstrings.Trim(username))
	next.AllKnownEmails, next.CurrentEmail = demote(c.AllKnownEmails, c.CurrentEmail, email.Normalize(address))
	next.AllKnownNames, next.CurrentName = demote(c.AllKnownNames, c.CurrentName, pstrings.Trim(name))
	next.UpdatedAt = now
	return next, nil
}

// AddAllKnownData unions extra aliases into the known lists. Blank entries are
// ignored and current fields are untouched.
func (c Contributor) AddAllKnownData(usernames, emails, names []string, now time.Time) (*Contributor, error) {
	for _, known := range emails {
		if strings.TrimSpace(known) != "" && !email.IsValid(known) {
			return nil, invariant(fmt.Sprintf("Invalid email format: %s", known))
		}
	}
	next := c.clone()
	next.AllKnownUsernames = pstrings.Merge(c.AllKnownUsernames, usernames, pstrings.Trim)
	next.AllKnownEmails = pstrings.Merge(c.AllKnownEmails, emails, pstrings.TrimLower)
	next.AllKnownNames = pstrings.Merge(c.AllKnownNames, names, pstrings.Trim)
	next.UpdatedAt = now
	return next, nil
}

func (c Contributor) LinkToUser(userID id.UserID, now time.Time) (*Contributor, error) {
	if userID.IsNil() {
		return nil, invariant("User ID cannot be empty")
	}
	next := c.clone()
	next.UserID = &userID
	next.UpdatedAt = now
	return next, nil
}

func (c Contributor) UnlinkFromUser(now time.Time) *Contributor {
	next := c.clone()
	next.UserID = nil
	next.UpdatedAt = now
	return next
}

func (c Contributor) UpdateStatus(status Status, now time.Time) (*Contributor, error) {
	if !status.IsValid() {
		return nil, invariant(fmt.Sprintf("Invalid status: %s", status))
	}
	next := c.clone()
	next.Status = status
	next.UpdatedAt = now
	return next, nil
}

func (c Contributor) UpdateLastActiveDate(at, now time.Time) *Contributor {
	next := c.clone()
	next.LastActiveDate = &at
	next.UpdatedAt = now
	return next
}

func (c Contributor) IsLinked() bool { return c.UserID != nil }

func (c Contributor) HasUsedUsername(username string) bool {
	return used(c.CurrentUsername, c.AllKnownUsernames, username, pstrings.Trim)
}

func (c Contributor) HasUsedEmail(address string) bool {
	return used(c.CurrentEmail, c.AllKnownEmails, address, pstrings.TrimLower)
}

func (c Contributor) HasUsedName(name string) bool {
	return used(c.CurrentName, c.AllKnownNames, name, pstrings.Trim)
}

// AllUsernames returns the current username followed by the known ones in
// stored order.
func (c Contributor) AllUsernames() []string {
	return withCurrent(c.CurrentUsername, c.AllKnownUsernames)
}

func (c Contributor) AllEmails() []string {
	return withCurrent(c.CurrentEmail, c.AllKnownEmails)
}

func (c Contributor) AllNames() []string {
	return withCurrent(c.CurrentName, c.AllKnownNames)
}

// Clone returns a deep copy.
func (c Contributor) Clone() *Contributor {
	return c.clone()
}

func (c Contributor) clone() *Contributor {
	next := c
	next.AllKnownUsernames = copyList(c.AllKnownUsernames)
	next.AllKnownEmails = copyList(c.AllKnownEmails)
	next.AllKnownNames = copyList(c.AllKnownNames)
	if c.UserID != nil {
		userID := *c.UserID
		next.UserID = &userID
	}
	if c.LastActiveDate != nil {
		at := *c.LastActiveDate
		next.LastActiveDate = &at
	}
	return &next
}

// demote returns the known list with current appended when it is being
// replaced, along with the new current value.
func demote(known []string, current, replacement string) ([]string, string) {
	if current == replacement {
		return copyList(known), current
	}
	return pstrings.Merge(known, []string{current}, pstrings.Trim), replacement
}

// copyList never returns nil so empty lists encode as [].
func copyList(values []string) []string {
	return append(make([]string, 0, len(values)), values...)
}

func used(current string, known []string, v string, norm pstrings.Normalizer) bool {
	n := norm(v)
	if n == "" {
		return false
	}
	return current == n || slices.Contains(known, n)
}

func withCurrent(current string, known []string) []string {
	out := make([]string, 0, len(known)+1)
	out = append(out, current)
	return append(out, known...)
}

func invariant(msg string) error {
	return dErrors.New(dErrors.CodeInvariantViolation, msg)
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListFilter narrows a contributor listing. Username and Email match the
// current value or any known alias; Email is compared in normalized form.
type ListFilter struct {
	UserID   *id.UserID
	Username string
	Email    string
	Limit    int
	Offset   int
}

// Matches reports whether c satisfies the filter, ignoring pagination.
func (f ListFilter) Matches(c *Contributor) bool {
	if f.UserID != nil && (c.UserID == nil || *c.UserID != *f.UserID) {
		return false
	}
	if f.Username != "" && !c.HasUsedUsername(f.Username) {
		return false
	}
	if f.Email != "" && !c.HasUsedEmail(f.Email) {
		return false
	}
	return true
}

// UpsertResult says what UpsertFromGitHub did.
type UpsertResult string

const (
	UpsertCreated   UpsertResult = "created"
	UpsertUpdated   UpsertResult = "updated"
	UpsertUnchanged UpsertResult = "unchanged"
)

// GitHubIdentity is a member profile as GitHub reports it. Email and Name
// may be empty when the profile hides them.
type GitHubIdentity struct {
	Login        string
	Email        string
	Name         string
	LastActiveAt *time.Time
}

// Page is one slice of a filtered listing.
type Page struct {
	Data   []*Contributor `json:"data"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
