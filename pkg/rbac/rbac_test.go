package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleCentralAdmin, PermissionRunSweep, true},
		{RoleCentralAdmin, PermissionResolveEscalation, true},
		{RoleStateNodal, PermissionResolveEscalation, true},
		{RoleStateNodal, PermissionRunSweep, false},
		{RoleDistrictOfficer, PermissionCreateEscalation, true},
		{RoleDistrictOfficer, PermissionRunSweep, false},
		{RoleExecutingAgency, PermissionViewEscalation, true},
		{RoleExecutingAgency, PermissionResolveEscalation, false},
		{RoleGramPanchayat, PermissionCreateEscalation, false},
		{"unknown_role", PermissionViewEscalation, false},
		{"", PermissionViewEscalation, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission),
			"role=%s permission=%s", tt.role, tt.permission)
	}
}

func TestEveryRoleCanViewEscalations(t *testing.T) {
	for role := range rolePermissions {
		assert.True(t, HasPermission(role, PermissionViewEscalation), "role=%s", role)
	}
}

func TestCheckPermission(t *testing.T) {
	require.NoError(t, CheckPermission(RoleCentralAdmin, PermissionRunSweep))

	err := CheckPermission(RoleExecutingAgency, PermissionResolveEscalation)
	require.Error(t, err)
	assert.Equal(t, "insufficient permissions", err.Error())

	var denied *PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, RoleExecutingAgency, denied.Role)
	assert.Equal(t, PermissionResolveEscalation, denied.Permission)
}
