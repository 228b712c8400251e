package auth

import (
	"fmt"
	"strings"
)

// Role is one of the fixed ordered set of platform roles.
type Role string

const (
	RoleUser       Role = "USER"
	RoleSponsor    Role = "SPONSOR"
	RoleOrganizer  Role = "ORGANIZER"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Roles lists every valid role in ascending order of privilege.
var Roles = []Role{RoleUser, RoleSponsor, RoleOrganizer, RoleManager, RoleAdmin, RoleSuperAdmin}

func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, role := range Roles {
		if candidate == role {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// HasRole reports whether role is a member of the allowed set. An empty
// allowed set matches nothing; route-level "no restriction" is decided by the
// guard before calling this.
func HasRole(role Role, allowed ...Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}

// BypassesTenantIsolation reports whether the role may cross tenant
// boundaries. Cross-tenant access is SUPER_ADMIN's defining privilege.
func (r Role) BypassesTenantIsolation() bool {
	return r == RoleSuperAdmin
}
