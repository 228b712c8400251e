package handlers

import (
	"net/http"
	"time"

	"github.com/sponsorhub/server/internal/api/problem"
	"github.com/sponsorhub/server/internal/audit"
)

type AuditHandler struct {
	Recorder *audit.Recorder
	Env      string
}

func NewAuditHandler(recorder *audit.Recorder, env string) *AuditHandler {
	return &AuditHandler{Recorder: recorder, Env: env}
}

type auditEntryResponse struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	ActorID    string            `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func renderAuditEntry(e audit.Entry) auditEntryResponse {
	return auditEntryResponse{
		ID:         e.ID,
		TenantID:   e.TenantID,
		ActorID:    e.ActorID,
		ActorRole:  e.ActorRole,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

type auditListResponse struct {
	Items []auditEntryResponse `json:"items"`
	Total int64                `json:"total"`
}

// Query handles GET /api/v1/tenants/{tenantId}/audit. Entries come back
// newest first. The tenant scope follows the actor claim; only SUPER_ADMIN
// reads a tenant it does not belong to.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Recorder == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	tenantID := actor.TenantID
	if actor.Role.BypassesTenantIsolation() && r.PathValue("tenantId") != "" {
		tenantID = r.PathValue("tenantId")
	}

	filters := audit.Filters{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entity_type"),
		ActorID:    r.URL.Query().Get("actor_id"),
	}
	pagination := audit.Pagination{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	entries, total, err := h.Recorder.Query(r.Context(), tenantID, filters, pagination)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, renderAuditEntry(entry))
	}
	writeJSON(w, http.StatusOK, auditListResponse{Items: items, Total: total})
}

// History handles GET /api/v1/audit/{entityType}/{entityId}/history. The full
// trail of one entity, newest first. An ADMIN sees only entries from their
// own tenant; SUPER_ADMIN sees all.
func (h *AuditHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Recorder == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	entries, err := h.Recorder.History(r.Context(), r.PathValue("entityType"), r.PathValue("entityId"))
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		if !actor.Role.BypassesTenantIsolation() && entry.TenantID != actor.TenantID {
			continue
		}
		items = append(items, renderAuditEntry(entry))
	}
	writeJSON(w, http.StatusOK, auditListResponse{Items: items, Total: int64(len(items))})
}
