package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/sponsorhub/server/internal/api/problem"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/domain/users"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type AuthHandler struct {
	Users   users.Repository
	Refresh *auth.RefreshService
	Env     string
}

func NewAuthHandler(repo users.Repository, refresh *auth.RefreshService, env string) *AuthHandler {
	return &AuthHandler{Users: repo, Refresh: refresh, Env: env}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login. A successful login returns an access
// token plus a single-use refresh credential.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Users == nil || h.Refresh == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	user, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, h.Env)
		return
	}

	role, err := auth.ParseRole(user.Role)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	pair, err := h.Refresh.Issue(r.Context(), auth.Principal{
		Subject:     user.ID,
		Role:        role,
		TenantID:    user.TenantID,
		CompanyID:   user.CompanyID,
		OrganizerID: user.OrganizerID,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	_ = h.Users.UpdateLastLogin(r.Context(), user.ID)

	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken handles POST /api/v1/auth/refresh. The presented credential is
// consumed whether or not rotation succeeds; a replay fails with 401.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Refresh == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	pair, err := h.Refresh.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshFailed) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Refresh failed", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}
