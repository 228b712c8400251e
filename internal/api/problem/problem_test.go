package problem

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRendersTaxonomyType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/tenants/t-1/proposals", nil)

	Write(w, r, 400, TypeValidation, "Invalid request", errors.New("title is required"), "test")

	require.Equal(t, 400, w.Code)
	require.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var details Details
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	require.Equal(t, TypeValidation, details.Type)
	require.Equal(t, "Invalid request", details.Title)
	require.Equal(t, "title is required", details.Detail)
	require.Equal(t, "/api/v1/tenants/t-1/proposals", details.Instance)
}

func TestWriteRedactsDetailOutsideDevelopment(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/tenants/t-1/proposals", nil)

	Write(w, r, 500, TypeServer, "Server error", errors.New("pg: connection refused"), "production")

	var details Details
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	require.Equal(t, "Internal Server Error", details.Detail)
	require.NotContains(t, w.Body.String(), "connection refused")
}

func TestWriteHonorsOptions(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)

	Write(w, r, 400, TypeValidation, "Invalid request", nil, "test",
		WithDetail("email is malformed"),
		WithErrors(map[string]any{"email": "must be a valid address"}),
	)

	var details Details
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	require.Equal(t, "email is malformed", details.Detail)
	require.Equal(t, "must be a valid address", details.Errors["email"])
}

func TestTaxonomyTypesShareBase(t *testing.T) {
	for _, typ := range []Type{
		TypeValidation, TypeServer, TypeUnauthorized,
		TypeTokenExpired, TypeForbidden, TypeNotFound, TypeConflict,
	} {
		require.Contains(t, string(typ), "https://sponsorhub.dev/problems/")
	}
}
