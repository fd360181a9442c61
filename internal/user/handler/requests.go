package handler

import (
	"contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/httputil"
)

type createUserRequest struct {
	Email         string               `json:"email"`
	Name          string               `json:"name"`
	Company       *string              `json:"company"`
	Role          models.Role          `json:"role"`
	RoleType      models.RoleType      `json:"roleType"`
	GrowthLevel   *string              `json:"growthLevel"`
	OrgFunction   *models.OrgFunction  `json:"orgFunction"`
	Pillar        *string              `json:"pillar"`
	Tribe         *string              `json:"tribe"`
	Squad         *string              `json:"squad"`
	JobTitle      *string              `json:"jobTitle"`
	ManagerID     *id.UserID           `json:"managerId"`
	AppAccessRole models.AppAccessRole `json:"appAccessRole"`
}

func (r createUserRequest) toParams() models.NewUserParams {
	return models.NewUserParams{
		Email:         r.Email,
		Name:          r.Name,
		Company:       r.Company,
		Role:          r.Role,
		RoleType:      r.RoleType,
		GrowthLevel:   r.GrowthLevel,
		OrgFunction:   r.OrgFunction,
		Pillar:        r.Pillar,
		Tribe:         r.Tribe,
		Squad:         r.Squad,
		JobTitle:      r.JobTitle,
		ManagerID:     r.ManagerID,
		AppAccessRole: r.AppAccessRole,
	}
}

// updateUserRequest distinguishes absent fields (unchanged) from null (cleared).
type updateUserRequest struct {
	Name          *string                               `json:"name"`
	Company       httputil.Optional[string]             `json:"company"`
	Role          *models.Role                          `json:"role"`
	RoleType      *models.RoleType                      `json:"roleType"`
	GrowthLevel   httputil.Optional[string]             `json:"growthLevel"`
	OrgFunction   httputil.Optional[models.OrgFunction] `json:"orgFunction"`
	Pillar        httputil.Optional[string]             `json:"pillar"`
	Tribe         httputil.Optional[string]             `json:"tribe"`
	Squad         httputil.Optional[string]             `json:"squad"`
	JobTitle      httputil.Optional[string]             `json:"jobTitle"`
	ManagerID     httputil.Optional[id.UserID]          `json:"managerId"`
	AppAccessRole *models.AppAccessRole                 `json:"appAccessRole"`
}

func (r updateUserRequest) toUpdate() models.ProfileUpdate {
	return models.ProfileUpdate{
		Name:             r.Name,
		Company:          clearable(r.Company),
		Role:             r.Role,
		RoleType:         r.RoleType,
		GrowthLevel:      clearable(r.GrowthLevel),
		OrgFunction:      r.OrgFunction.Ptr(),
		ClearOrgFunction: r.OrgFunction.Null,
		Pillar:           clearable(r.Pillar),
		Tribe:            clearable(r.Tribe),
		Squad:            clearable(r.Squad),
		JobTitle:         clearable(r.JobTitle),
		ManagerID:        r.ManagerID.Ptr(),
		ClearManager:     r.ManagerID.Null,
		AppAccessRole:    r.AppAccessRole,
	}
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

// clearable maps an explicit null to a blank string, which the domain stores as nil.
func clearable(o httputil.Optional[string]) *string {
	if o.Null {
		blank := ""
		return &blank
	}
	return o.Ptr()
}
