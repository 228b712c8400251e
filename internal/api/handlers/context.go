// Package handlers contains the HTTP endpoints. Every protected handler
// assumes the guard chain already ran; the principal it reads from the
// request context was placed there only after all three stages passed.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sponsorhub/server/internal/api/problem"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/eventbus"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// principal returns the guard-authenticated identity, or writes a 401 when a
// protected route was somehow reached without one.
func principal(w http.ResponseWriter, r *http.Request, env string) (*auth.Principal, bool) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
		return nil, false
	}
	return p, true
}

// degraded reports an event publish failure on a mutation that already
// committed. The response stays successful; the Warning header tells the
// caller that downstream notifications for this change may be missing.
func degraded(w http.ResponseWriter, err error) bool {
	if errors.Is(err, eventbus.ErrDegraded) {
		w.Header().Set("Warning", `199 - "event delivery degraded"`)
		return true
	}
	return false
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
