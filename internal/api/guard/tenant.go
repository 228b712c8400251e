package guard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// TenantSource names where a route reads its tenant identifier from.
type TenantSource string

const (
	SourcePath  TenantSource = "path"
	SourceQuery TenantSource = "query"
	SourceBody  TenantSource = "body"
)

// maxBodyPeek bounds how much of a request body the resolver will buffer.
const maxBodyPeek = 1 << 20

// TenantRule declares where the tenant identifier a request claims to
// operate on is read from.
type TenantRule struct {
	Source TenantSource
	Field  string
}

// DefaultTenantRule reads the "tenantId" path parameter.
func DefaultTenantRule() TenantRule {
	return TenantRule{Source: SourcePath, Field: "tenantId"}
}

// ResolveTenant extracts the declared field from the declared source. A
// missing or empty value resolves to not-ok: the isolation check fails
// closed, never open. When the source is the body, the body is buffered and
// restored so the handler can still read it.
func ResolveTenant(rule TenantRule, r *http.Request) (string, bool) {
	field := rule.Field
	if field == "" {
		field = "tenantId"
	}

	switch rule.Source {
	case SourceQuery:
		value := strings.TrimSpace(r.URL.Query().Get(field))
		return value, value != ""
	case SourceBody:
		return tenantFromBody(r, field)
	case SourcePath, "":
		value := strings.TrimSpace(r.PathValue(field))
		return value, value != ""
	default:
		return "", false
	}
}

func tenantFromBody(r *http.Request, field string) (string, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", false
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false
	}

	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
