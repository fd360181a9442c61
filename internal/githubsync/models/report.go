package models

import (
	"time"

	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
)

// Outcome is what a sync did with a single organization member.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Member is an organization member as reported by GitHub. Email and Name are
// empty when the profile hides them.
type Member struct {
	Login        string
	Name         string
	Email        string
	LastActiveAt *time.Time
}

// MemberError records a member that could not be reconciled.
type MemberError struct {
	Login string `json:"login"`
	Error string `json:"error"`
}

// Report summarises one organization sync.
type Report struct {
	OrganizationID id.OrganizationID `json:"organizationId"`
	Organization   string            `json:"organization"`
	MembersSeen    int               `json:"membersSeen"`
	Created        int               `json:"created"`
	Updated        int               `json:"updated"`
	Unchanged      int               `json:"unchanged"`
	Failed         int               `json:"failed"`
	Errors         []MemberError     `json:"errors,omitempty"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt"`
}

// Record tallies the outcome for one member.
func (r *Report) Record(login string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFailed:
		r.Failed++
		r.Errors = append(r.Errors, MemberError{Login: login, Error: describe(err)})
	}
}

// describe renders err for the report without leaking internal causes.
func describe(err error) string {
	if err == nil || dErrors.CodeOf(err) == dErrors.CodeInternal {
		return "internal error"
	}
	return dErrors.MessageOf(err)
}
