// Package guard implements the per-request authorization chain:
// authenticate, role check, tenant isolation check, in that fixed order.
package guard

import "github.com/sponsorhub/server/internal/auth"

// Policy is the declarative route configuration attached at registration
// time. An empty AllowedRoles set imposes no role restriction; a nil
// TenantRule skips the tenant isolation stage.
type Policy struct {
	AllowedRoles []auth.Role
	TenantRule   *TenantRule
}

// Roles builds a policy restricted to the given roles.
func Roles(roles ...auth.Role) Policy {
	return Policy{AllowedRoles: roles}
}

// WithTenantRule returns a copy of the policy with the tenant rule attached.
func (p Policy) WithTenantRule(rule TenantRule) Policy {
	p.TenantRule = &rule
	return p
}

// WithTenantFromPath attaches the default rule: tenant id read from the
// "tenantId" path parameter.
func (p Policy) WithTenantFromPath() Policy {
	return p.WithTenantRule(DefaultTenantRule())
}
