package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoleAcceptsKnownRoles(t *testing.T) {
	for _, role := range Roles {
		parsed, err := ParseRole(string(role))
		require.NoError(t, err)
		require.Equal(t, role, parsed)
	}
}

func TestParseRoleNormalizesCase(t *testing.T) {
	parsed, err := ParseRole(" admin ")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, parsed)
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "ROOT", "SUPERADMIN", "SUPER ADMIN", "ADMINISTRATOR"} {
		_, err := ParseRole(raw)
		require.Error(t, err, "role %q should be rejected", raw)
	}
}

func TestHasRole(t *testing.T) {
	require.True(t, HasRole(RoleManager, RoleManager, RoleAdmin))
	require.False(t, HasRole(RoleUser, RoleManager, RoleAdmin))
	require.False(t, HasRole(RoleAdmin))
}

func TestOnlySuperAdminBypassesTenantIsolation(t *testing.T) {
	for _, role := range Roles {
		if role == RoleSuperAdmin {
			require.True(t, role.BypassesTenantIsolation())
		} else {
			require.False(t, role.BypassesTenantIsolation(), "role %s must not bypass", role)
		}
	}
}
