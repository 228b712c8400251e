package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sponsorhub/server/internal/api/problem"
	"github.com/sponsorhub/server/internal/domain/verifications"
)

type VerificationsHandler struct {
	Service *verifications.Service
	Env     string
}

func NewVerificationsHandler(service *verifications.Service, env string) *VerificationsHandler {
	return &VerificationsHandler{Service: service, Env: env}
}

type verificationResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Decision   string    `json:"decision"`
	Reason     string    `json:"reason,omitempty"`
	DecidedBy  string    `json:"decided_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func renderVerification(v *verifications.Verification) verificationResponse {
	return verificationResponse{
		ID:         v.ID,
		TenantID:   v.TenantID,
		EntityType: string(v.EntityType),
		EntityID:   v.EntityID,
		Decision:   string(v.Decision),
		Reason:     v.Reason,
		DecidedBy:  v.DecidedBy,
		CreatedAt:  v.CreatedAt,
	}
}

type decideRequest struct {
	Decision string `json:"decision" validate:"required"`
	Reason   string `json:"reason" validate:"max=1000"`
}

// Decide handles POST /api/v1/tenants/{tenantId}/verifications/{entityType}/{entityId}.
func (h *VerificationsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	entityType, err := verifications.ParseEntityType(r.PathValue("entityType"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	decision, err := verifications.ParseDecision(req.Decision)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	created, err := h.Service.Decide(r.Context(), *actor, r.PathValue("tenantId"), entityType, r.PathValue("entityId"), decision, req.Reason)
	if err != nil && !degraded(w, err) {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, renderVerification(created))
}

// Latest handles GET /api/v1/tenants/{tenantId}/verifications/{entityType}/{entityId}.
func (h *VerificationsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	entityType, err := verifications.ParseEntityType(r.PathValue("entityType"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	latest, err := h.Service.Latest(r.Context(), *actor, r.PathValue("tenantId"), entityType, r.PathValue("entityId"))
	if err != nil {
		if errors.Is(err, verifications.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, renderVerification(latest))
}
