package guard

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTenantFromPath(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	var ok bool
	mux.HandleFunc("/tenants/{tenantId}/things", func(w http.ResponseWriter, r *http.Request) {
		got, ok = ResolveTenant(DefaultTenantRule(), r)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants/tenant-a/things", nil)
	mux.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	require.Equal(t, "tenant-a", got)
}

func TestResolveTenantFromQuery(t *testing.T) {
	rule := TenantRule{Source: SourceQuery, Field: "tenant"}

	req := httptest.NewRequest(http.MethodGet, "/things?tenant=tenant-b", nil)
	got, ok := ResolveTenant(rule, req)
	require.True(t, ok)
	require.Equal(t, "tenant-b", got)

	req = httptest.NewRequest(http.MethodGet, "/things", nil)
	_, ok = ResolveTenant(rule, req)
	require.False(t, ok)
}

func TestResolveTenantFromBody(t *testing.T) {
	rule := TenantRule{Source: SourceBody, Field: "tenant_id"}

	body := `{"tenant_id":"tenant-c","title":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(body))
	got, ok := ResolveTenant(rule, req)
	require.True(t, ok)
	require.Equal(t, "tenant-c", got)

	// The body must still be readable by the handler afterwards.
	restored, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.JSONEq(t, body, string(restored))
}

func TestResolveTenantFailsClosed(t *testing.T) {
	pathRule := DefaultTenantRule()
	req := httptest.NewRequest(http.MethodGet, "/things", nil)
	_, ok := ResolveTenant(pathRule, req)
	require.False(t, ok)

	bodyRule := TenantRule{Source: SourceBody, Field: "tenant_id"}
	for _, body := range []string{"", "not json", `{"tenant_id":""}`, `{"tenant_id":42}`, `{"other":"x"}`} {
		req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(body))
		_, ok := ResolveTenant(bodyRule, req)
		require.False(t, ok, "body %q should fail closed", body)
	}

	_, ok = ResolveTenant(TenantRule{Source: "header"}, httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, ok)
}

func TestResolveTenantTrimsWhitespace(t *testing.T) {
	rule := TenantRule{Source: SourceQuery, Field: "tenant"}
	req := httptest.NewRequest(http.MethodGet, "/things?tenant=%20%20", nil)
	_, ok := ResolveTenant(rule, req)
	require.False(t, ok)
}
