package rbac

// Roles mirror the scheme hierarchy: ministry at the centre, nodal and
// finance officers per state, officers per district, and the agencies
// executing projects on the ground.
const (
	RoleCentralAdmin      = "central_admin"
	RoleCentralFinance    = "central_finance"
	RoleStateNodal        = "state_nodal"
	RoleStateFinance      = "state_finance"
	RoleDistrictOfficer   = "district_officer"
	RoleImplementingAgency = "implementing_agency"
	RoleExecutingAgency   = "executing_agency"
	RoleGramPanchayat     = "gram_panchayat"
)

// Permissions gating the escalation surface.
const (
	PermissionResolveEscalation = "escalation:resolve"
	PermissionCreateEscalation  = "escalation:create"
	PermissionViewEscalation    = "escalation:view"
	PermissionRunSweep          = "escalation:sweep"
)

var rolePermissions = map[string][]string{
	RoleCentralAdmin: {
		PermissionViewEscalation,
		PermissionCreateEscalation,
		PermissionResolveEscalation,
		PermissionRunSweep,
	},
	RoleCentralFinance: {
		PermissionViewEscalation,
	},
	RoleStateNodal: {
		PermissionViewEscalation,
		PermissionCreateEscalation,
		PermissionResolveEscalation,
	},
	RoleStateFinance: {
		PermissionViewEscalation,
	},
	RoleDistrictOfficer: {
		PermissionViewEscalation,
		PermissionCreateEscalation,
		PermissionResolveEscalation,
	},
	RoleImplementingAgency: {
		PermissionViewEscalation,
	},
	RoleExecutingAgency: {
		PermissionViewEscalation,
	},
	RoleGramPanchayat: {
		PermissionViewEscalation,
	},
}

// HasPermission reports whether the role carries the permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns an error when the role lacks the permission.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
