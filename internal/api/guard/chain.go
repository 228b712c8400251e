package guard

import (
	"errors"
	"net/http"

	"github.com/sponsorhub/server/internal/api/problem"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/metrics"
)

// Chain runs the fixed three-stage authorization pipeline. A later stage
// never runs when an earlier one fails, so no handler, audit write, or job
// enqueue is reachable on an unauthorized request.
type Chain struct {
	verifier *auth.Verifier
	env      string
}

func NewChain(verifier *auth.Verifier, env string) *Chain {
	return &Chain{verifier: verifier, env: env}
}

// Protect wraps a handler with the guard stages declared by the policy.
func (c *Chain) Protect(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := c.authenticate(w, r)
			if !ok {
				return
			}
			if !c.checkRole(w, r, policy, principal) {
				return
			}
			if !c.checkTenant(w, r, policy, principal) {
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves the bearer credential into a principal. Absence,
// tampering, and expiry all map to 401; expiry additionally carries the
// WWW-Authenticate signal the refresh protocol keys on.
func (c *Chain) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	if c.verifier == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, c.env)
		return nil, false
	}

	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		metrics.GuardDecisions.WithLabelValues("authenticate", "denied").Inc()
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing credentials", err, c.env)
		return nil, false
	}

	principal, err := c.verifier.Verify(token)
	if err != nil {
		metrics.GuardDecisions.WithLabelValues("authenticate", "denied").Inc()
		if errors.Is(err, auth.ErrExpiredToken) {
			w.Header().Set("WWW-Authenticate", auth.ExpiredCredentialHeader)
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeTokenExpired, "Credential expired", err, c.env)
			return nil, false
		}
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, c.env)
		return nil, false
	}

	metrics.GuardDecisions.WithLabelValues("authenticate", "allowed").Inc()
	return principal, true
}

// checkRole enforces the route's allowed-role set. An empty set imposes no
// restriction. SUPER_ADMIN is never role-restricted.
func (c *Chain) checkRole(w http.ResponseWriter, r *http.Request, policy Policy, principal *auth.Principal) bool {
	if len(policy.AllowedRoles) == 0 {
		return true
	}
	if principal.Role == auth.RoleSuperAdmin || auth.HasRole(principal.Role, policy.AllowedRoles...) {
		metrics.GuardDecisions.WithLabelValues("role", "allowed").Inc()
		return true
	}

	metrics.GuardDecisions.WithLabelValues("role", "denied").Inc()
	problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient role", problem.ErrForbidden, c.env)
	return false
}

// checkTenant compares the tenant the request claims to operate on with the
// principal's tenant claim. A declared rule whose value cannot be resolved
// fails closed. SUPER_ADMIN bypasses the comparison entirely.
func (c *Chain) checkTenant(w http.ResponseWriter, r *http.Request, policy Policy, principal *auth.Principal) bool {
	if policy.TenantRule == nil {
		return true
	}
	if principal.Role.BypassesTenantIsolation() {
		metrics.GuardDecisions.WithLabelValues("tenant", "allowed").Inc()
		return true
	}

	requested, ok := ResolveTenant(*policy.TenantRule, r)
	if !ok || requested != principal.TenantID {
		metrics.GuardDecisions.WithLabelValues("tenant", "denied").Inc()
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Tenant mismatch", problem.ErrForbidden, c.env)
		return false
	}

	metrics.GuardDecisions.WithLabelValues("tenant", "allowed").Inc()
	return true
}
