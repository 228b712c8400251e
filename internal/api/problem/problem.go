// Package problem renders RFC 7807 application/problem+json responses using
// the sponsorhub problem-type taxonomy. Every error the API emits names one
// of the Type constants below, so clients can switch on type instead of
// parsing titles.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// Type is a problem-type URI from the sponsorhub taxonomy.
type Type string

const (
	typeBase = "https://sponsorhub.dev/problems/"

	TypeValidation   Type = typeBase + "validation-error"
	TypeServer       Type = typeBase + "server-error"
	TypeUnauthorized Type = typeBase + "unauthorized"
	TypeTokenExpired Type = typeBase + "token-expired"
	TypeForbidden    Type = typeBase + "forbidden"
	TypeNotFound     Type = typeBase + "not-found"
	TypeConflict     Type = typeBase + "conflict"
)

// Details is the wire shape of a problem response.
type Details struct {
	Type     Type           `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

type Option func(*Details)

func WithDetail(detail string) Option {
	return func(d *Details) {
		d.Detail = detail
	}
}

func WithInstance(instance string) Option {
	return func(d *Details) {
		d.Instance = instance
	}
}

func WithErrors(errs map[string]any) Option {
	return func(d *Details) {
		d.Errors = errs
	}
}

// Write renders the problem response and logs it through the request-scoped
// logger. Error details are surfaced to clients only in development and test
// environments; elsewhere the detail is the generic status text.
func Write(w http.ResponseWriter, r *http.Request, status int, typ Type, title string, err error, env string, opts ...Option) {
	details := Details{
		Type:   typ,
		Title:  title,
		Status: status,
	}
	for _, opt := range opts {
		opt(&details)
	}

	if details.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			details.Detail = err.Error()
		} else {
			details.Detail = http.StatusText(status)
		}
	}
	if details.Instance == "" && r != nil {
		details.Instance = r.URL.Path
	}

	if err != nil && r != nil && status >= 400 {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= 500 {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", status).
			Str("type", string(typ)).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	WriteDetails(w, details)
}

// WriteDetails renders a fully assembled problem response.
func WriteDetails(w http.ResponseWriter, details Details) {
	w.Header().Set("Content-Type", contentType)

	payload, err := json.Marshal(details)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"` + typeBase + `server-error","title":"Internal Server Error","status":500}`))
		return
	}

	w.WriteHeader(details.Status)
	_, _ = w.Write(payload)
}

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)
