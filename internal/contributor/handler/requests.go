package handler

import (
	"time"

	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/contributor/service"
	id "contribution-metrics/pkg/domain"
)

type createContributorRequest struct {
	CurrentUsername   string         `json:"currentUsername"`
	CurrentEmail      string         `json:"currentEmail"`
	CurrentName       string         `json:"currentName"`
	AllKnownUsernames []string       `json:"allKnownUsernames"`
	AllKnownEmails    []string       `json:"allKnownEmails"`
	AllKnownNames     []string       `json:"allKnownNames"`
	UserID            *id.UserID     `json:"userId"`
	Status            *models.Status `json:"status"`
	LastActiveDate    *time.Time     `json:"lastActiveDate"`
}

func (r createContributorRequest) toParams() service.CreateParams {
	return service.CreateParams{
		Username:       r.CurrentUsername,
		Email:          r.CurrentEmail,
		Name:           r.CurrentName,
		KnownUsernames: r.AllKnownUsernames,
		KnownEmails:    r.AllKnownEmails,
		KnownNames:     r.AllKnownNames,
		UserID:         r.UserID,
		Status:         r.Status,
		LastActiveDate: r.LastActiveDate,
	}
}

// updateContributorRequest changes only the fields present. Alias lists are
// merged into the known lists.
type updateContributorRequest struct {
	CurrentUsername   *string        `json:"currentUsername"`
	CurrentEmail      *string        `json:"currentEmail"`
	CurrentName       *string        `json:"currentName"`
	AllKnownUsernames []string       `json:"allKnownUsernames"`
	AllKnownEmails    []string       `json:"allKnownEmails"`
	AllKnownNames     []string       `json:"allKnownNames"`
	Status            *models.Status `json:"status"`
	LastActiveDate    *time.Time     `json:"lastActiveDate"`
}

func (r updateContributorRequest) toParams() service.UpdateParams {
	return service.UpdateParams{
		Username:       r.CurrentUsername,
		Email:          r.CurrentEmail,
		Name:           r.CurrentName,
		KnownUsernames: r.AllKnownUsernames,
		KnownEmails:    r.AllKnownEmails,
		KnownNames:     r.AllKnownNames,
		Status:         r.Status,
		LastActiveDate: r.LastActiveDate,
	}
}

type linkUserRequest struct {
	UserID id.UserID `json:"userId"`
}
