package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/domain/events"
	"github.com/sponsorhub/server/internal/domain/proposals"
	"github.com/sponsorhub/server/internal/eventbus"
)

type fakeProposalRepo struct {
	byID map[string]*proposals.Proposal
}

func (r *fakeProposalRepo) Create(ctx context.Context, proposal proposals.Proposal) (*proposals.Proposal, error) {
	stored := proposal
	r.byID[proposal.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeProposalRepo) GetByID(ctx context.Context, tenantID, id string) (*proposals.Proposal, error) {
	proposal, ok := r.byID[id]
	if !ok || proposal.TenantID != tenantID {
		return nil, proposals.ErrNotFound
	}
	copied := *proposal
	return &copied, nil
}

func (r *fakeProposalRepo) UpdateStatus(ctx context.Context, tenantID, id string, from, to proposals.Status) error {
	proposal, ok := r.byID[id]
	if !ok || proposal.TenantID != tenantID {
		return proposals.ErrNotFound
	}
	if proposal.Status != from {
		return proposals.ErrStaleStatus
	}
	proposal.Status = to
	return nil
}

func (r *fakeProposalRepo) List(ctx context.Context, tenantID string, filters proposals.Filters, pagination proposals.Pagination) ([]proposals.Proposal, int64, error) {
	var result []proposals.Proposal
	for _, proposal := range r.byID {
		if proposal.TenantID == tenantID {
			result = append(result, *proposal)
		}
	}
	return result, int64(len(result)), nil
}

type flakyAuditStore struct {
	entries   []audit.Entry
	appendErr error
}

func (s *flakyAuditStore) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	if s.appendErr != nil {
		return audit.Entry{}, s.appendErr
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *flakyAuditStore) Query(ctx context.Context, tenantID string, filters audit.Filters, pagination audit.Pagination) ([]audit.Entry, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}

func (s *flakyAuditStore) History(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	return s.entries, nil
}

// fakeProposalUnit emulates the transactional unit of work: a failed
// callback restores the repo and the audit store to their pre-call state.
type fakeProposalUnit struct {
	repo  *fakeProposalRepo
	store *flakyAuditStore
}

func (u *fakeProposalUnit) InTx(ctx context.Context, fn func(context.Context, proposals.Repository, *audit.Recorder) error) error {
	before := make(map[string]*proposals.Proposal, len(u.repo.byID))
	for id, proposal := range u.repo.byID {
		copied := *proposal
		before[id] = &copied
	}
	entriesBefore := len(u.store.entries)

	err := fn(ctx, u.repo, audit.NewRecorder(u.store, zerolog.Nop()))
	if err != nil {
		u.repo.byID = before
		u.store.entries = u.store.entries[:entriesBefore]
	}
	return err
}

type proposalHarness struct {
	handler *ProposalsHandler
	repo    *fakeProposalRepo
	store   *flakyAuditStore
	bus     *eventbus.Bus
}

func newProposalHarness(t *testing.T) *proposalHarness {
	t.Helper()
	repo := &fakeProposalRepo{byID: make(map[string]*proposals.Proposal)}
	store := &flakyAuditStore{}
	bus := eventbus.New(zerolog.Nop())
	unit := &fakeProposalUnit{repo: repo, store: store}
	service := proposals.NewService(repo, unit, bus, zerolog.Nop())
	return &proposalHarness{
		handler: NewProposalsHandler(service, "test"),
		repo:    repo,
		store:   store,
		bus:     bus,
	}
}

func (h *proposalHarness) request(t *testing.T, method, body string, pathValues map[string]string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", reader)
	for key, value := range pathValues {
		req.SetPathValue(key, value)
	}
	actor := &auth.Principal{Subject: "user-1", Role: auth.RoleSponsor, TenantID: "tenant-a"}
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), actor))
}

func (h *proposalHarness) createDraft(t *testing.T) string {
	t.Helper()
	req := h.request(t, http.MethodPost, `{"company_id":"company-1","title":"Summer festival","amount_cents":500000}`,
		map[string]string{"tenantId": "tenant-a"})
	rec := httptest.NewRecorder()
	h.handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created proposalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "DRAFT", created.Status)
	return created.ID
}

func TestCreateProposalEndpoint(t *testing.T) {
	h := newProposalHarness(t)
	id := h.createDraft(t)

	require.NotEmpty(t, id)
	require.Len(t, h.store.entries, 1)
	require.Equal(t, "created", h.store.entries[0].Action)
}

func TestCreateProposalValidation(t *testing.T) {
	h := newProposalHarness(t)

	for _, body := range []string{``, `{}`, `{"company_id":"c"}`, `{"company_id":"c","title":"x","amount_cents":-1}`} {
		req := h.request(t, http.MethodPost, body, map[string]string{"tenantId": "tenant-a"})
		rec := httptest.NewRecorder()
		h.handler.Create(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	require.Empty(t, h.store.entries)
}

func TestChangeStatusEndpoint(t *testing.T) {
	h := newProposalHarness(t)
	id := h.createDraft(t)

	req := h.request(t, http.MethodPatch, `{"status":"SUBMITTED"}`,
		map[string]string{"tenantId": "tenant-a", "id": id})
	rec := httptest.NewRecorder()
	h.handler.ChangeStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Warning"))

	var updated proposalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "SUBMITTED", updated.Status)
	require.Len(t, h.store.entries, 2)
}

func TestChangeStatusRejectsIllegalTransition(t *testing.T) {
	h := newProposalHarness(t)
	id := h.createDraft(t)

	req := h.request(t, http.MethodPatch, `{"status":"APPROVED"}`,
		map[string]string{"tenantId": "tenant-a", "id": id})
	rec := httptest.NewRecorder()
	h.handler.ChangeStatus(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Len(t, h.store.entries, 1)
}

func TestChangeStatusUnknownProposal(t *testing.T) {
	h := newProposalHarness(t)

	req := h.request(t, http.MethodPatch, `{"status":"SUBMITTED"}`,
		map[string]string{"tenantId": "tenant-a", "id": "missing"})
	rec := httptest.NewRecorder()
	h.handler.ChangeStatus(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeStatusAuditFailureFailsRequest(t *testing.T) {
	h := newProposalHarness(t)
	id := h.createDraft(t)

	h.store.appendErr = errors.New("audit store down")
	req := h.request(t, http.MethodPatch, `{"status":"SUBMITTED"}`,
		map[string]string{"tenantId": "tenant-a", "id": id})
	rec := httptest.NewRecorder()
	h.handler.ChangeStatus(rec, req)

	// The audit append shares the mutation's transaction, so its failure
	// rolls the transition back and the request fails outright.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, proposals.StatusDraft, h.repo.byID[id].Status)
}

func TestChangeStatusDegradedEventWarnsButSucceeds(t *testing.T) {
	h := newProposalHarness(t)
	id := h.createDraft(t)

	h.bus.Subscribe(events.TagProposalStatusChanged, func(ctx context.Context, e eventbus.Event) error {
		return errors.New("listener down")
	})

	req := h.request(t, http.MethodPatch, `{"status":"SUBMITTED"}`,
		map[string]string{"tenantId": "tenant-a", "id": id})
	rec := httptest.NewRecorder()
	h.handler.ChangeStatus(rec, req)

	// The transition and its audit entry committed; only post-commit event
	// delivery failed, so the response succeeds and carries the warning.
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Warning"), "event delivery degraded")
	require.Len(t, h.store.entries, 2)

	var updated proposalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "SUBMITTED", updated.Status)
}
