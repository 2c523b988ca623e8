package escalation

import (
	"fundportal/internal/model"
	"fundportal/pkg/rbac"
)

// Recipient describes who an escalation at a given level is addressed to.
// Either UserID pins a specific user (the project's executing agency at
// level 1) or Query selects by role and scope.
type Recipient struct {
	UserID int
	Query  RoleQuery
}

// ResolveRecipient maps an escalation level and project to the responsible
// party for that level:
//
//	level 1: the project's executing agency
//	level 2: the district officer for the project's district
//	level 3: the state nodal officer for the project's state
//	level 4: any central administrator
//
// Levels outside 1..MaxEscalationLevel have no recipient; a chain that has
// exhausted level 4 goes to maximum-escalation handling instead.
func ResolveRecipient(level int, p model.Project) (Recipient, bool) {
	switch level {
	case 1:
		return Recipient{UserID: p.ExecutingAgencyID}, true
	case 2:
		return Recipient{Query: RoleQuery{
			Role:     rbac.RoleDistrictOfficer,
			State:    p.State,
			District: p.District,
		}}, true
	case 3:
		return Recipient{Query: RoleQuery{
			Role:  rbac.RoleStateNodal,
			State: p.State,
		}}, true
	case 4:
		return Recipient{Query: RoleQuery{
			Role: rbac.RoleCentralAdmin,
		}}, true
	default:
		return Recipient{}, false
	}
}
