package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sponsorhub/server/internal/api/problem"
	"github.com/sponsorhub/server/internal/domain/proposals"
)

type ProposalsHandler struct {
	Service *proposals.Service
	Env     string
}

func NewProposalsHandler(service *proposals.Service, env string) *ProposalsHandler {
	return &ProposalsHandler{Service: service, Env: env}
}

type proposalResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	CompanyID   string    `json:"company_id"`
	EventID     string    `json:"event_id,omitempty"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func renderProposal(p *proposals.Proposal) proposalResponse {
	return proposalResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		CompanyID:   p.CompanyID,
		EventID:     p.EventID,
		Title:       p.Title,
		AmountCents: p.AmountCents,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type proposalListResponse struct {
	Items []proposalResponse `json:"items"`
	Total int64              `json:"total"`
}

// List handles GET /api/v1/tenants/{tenantId}/proposals.
func (h *ProposalsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	filters := proposals.Filters{CompanyID: r.URL.Query().Get("company_id")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := proposals.ParseStatus(raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
			return
		}
		filters.Status = status
	}
	pagination := proposals.Pagination{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	items, total, err := h.Service.List(r.Context(), *actor, r.PathValue("tenantId"), filters, pagination)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	rendered := make([]proposalResponse, 0, len(items))
	for i := range items {
		rendered = append(rendered, renderProposal(&items[i]))
	}
	writeJSON(w, http.StatusOK, proposalListResponse{Items: rendered, Total: total})
}

type createProposalRequest struct {
	CompanyID   string `json:"company_id" validate:"required"`
	EventID     string `json:"event_id"`
	Title       string `json:"title" validate:"required,max=200"`
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
}

// Create handles POST /api/v1/tenants/{tenantId}/proposals. New proposals
// always start in DRAFT.
func (h *ProposalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	created, err := h.Service.Create(r.Context(), *actor, r.PathValue("tenantId"), proposals.CreateParams{
		CompanyID:   req.CompanyID,
		EventID:     req.EventID,
		Title:       req.Title,
		AmountCents: req.AmountCents,
	})
	if err != nil && !degraded(w, err) {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, renderProposal(created))
}

// Get handles GET /api/v1/tenants/{tenantId}/proposals/{id}.
func (h *ProposalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	found, err := h.Service.Get(r.Context(), *actor, r.PathValue("tenantId"), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, proposals.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, renderProposal(found))
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ChangeStatus handles PATCH /api/v1/tenants/{tenantId}/proposals/{id}/status.
// Illegal transitions are rejected before anything is recorded; a concurrent
// transition on the same row maps to 409.
func (h *ProposalsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, h.Env)
		return
	}
	actor, ok := principal(w, r, h.Env)
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	target, err := proposals.ParseStatus(req.Status)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	updated, err := h.Service.ChangeStatus(r.Context(), *actor, r.PathValue("tenantId"), r.PathValue("id"), target)
	if err != nil && !degraded(w, err) {
		switch {
		case errors.Is(err, proposals.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
		case errors.Is(err, proposals.ErrInvalidTransition):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Invalid transition", err, h.Env)
		case errors.Is(err, proposals.ErrStaleStatus):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Concurrent update", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, renderProposal(updated))
}
