package handler

import (
	"time"

	"contribution-metrics/internal/organization/service"
)

type createOrganizationRequest struct {
	Name           string    `json:"name"`
	AccessToken    string    `json:"accessToken"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

func (r createOrganizationRequest) toParams() service.CreateParams {
	return service.CreateParams{
		Name:           r.Name,
		AccessToken:    r.AccessToken,
		TokenExpiresAt: r.TokenExpiresAt,
	}
}

// updateOrganizationRequest is a partial create request; omitted fields keep
// their current value.
type updateOrganizationRequest struct {
	Name           *string    `json:"name"`
	AccessToken    *string    `json:"accessToken"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt"`
}

func (r updateOrganizationRequest) toParams() service.UpdateParams {
	return service.UpdateParams{
		Name:           r.Name,
		AccessToken:    r.AccessToken,
		TokenExpiresAt: r.TokenExpiresAt,
	}
}
