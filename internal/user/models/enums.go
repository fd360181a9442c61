package models

import (
	"fmt"

	dErrors "contribution-metrics/pkg/domain-errors"
)

// Role is the user's role within the engineering organization.
type Role string

const (
	RoleProductEngineer          Role = "Product Engineer"
	RoleWordpressProductEngineer Role = "Wordpress Product Engineer"
	RoleArchitectPrinciple       Role = "Architect/Principle"
	RoleContentEditor            Role = "Content Editor"
	RoleDataEngineer             Role = "Data Engineer"
	RoleDataAnalytics            Role = "Data Analytics"
	RoleDWPEngineer              Role = "DWP Engineer"
	RoleManager                  Role = "Manager"
	RoleSREEngineer              Role = "SRE Engineer"
)

var validRoles = map[Role]struct{}{
	RoleProductEngineer: {}, RoleWordpressProductEngineer: {}, RoleArchitectPrinciple: {},
	RoleContentEditor: {}, RoleDataEngineer: {}, RoleDataAnalytics: {},
	RoleDWPEngineer: {}, RoleManager: {}, RoleSREEngineer: {},
}

func (r Role) IsValid() bool { _, ok := validRoles[r]; return ok }

// RoleType distinguishes individual contributors from managers.
type RoleType string

const (
	RoleTypeIC RoleType = "IC"
	RoleTypeMG RoleType = "MG"
)

func (t RoleType) IsValid() bool { return t == RoleTypeIC || t == RoleTypeMG }

// OrgFunction is the department a user belongs to.
type OrgFunction string

const (
	OrgFunctionEngineering OrgFunction = "Engineering"
	OrgFunctionContent     OrgFunction = "Content"
	OrgFunctionDesign      OrgFunction = "Design"
	OrgFunctionData        OrgFunction = "Data"
)

func (f OrgFunction) IsValid() bool {
	switch f {
	case OrgFunctionEngineering, OrgFunctionContent, OrgFunctionDesign, OrgFunctionData:
		return true
	}
	return false
}

// AppAccessRole controls what a user may do in this application.
type AppAccessRole string

const (
	AppAccessAdministrator AppAccessRole = "administrator"
	AppAccessHO            AppAccessRole = "HO"
	AppAccessEM            AppAccessRole = "EM"
	AppAccessIC            AppAccessRole = "IC"
)

func (a AppAccessRole) IsValid() bool {
	switch a {
	case AppAccessAdministrator, AppAccessHO, AppAccessEM, AppAccessIC:
		return true
	}
	return false
}

func invalidEnum(field string, value any) error {
	return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("invalid %s: %v", field, value))
}
