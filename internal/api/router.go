package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/api/guard"
	"github.com/sponsorhub/server/internal/api/handlers"
	"github.com/sponsorhub/server/internal/api/middleware"
	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/config"
	"github.com/sponsorhub/server/internal/domain/proposals"
	"github.com/sponsorhub/server/internal/domain/verifications"
	"github.com/sponsorhub/server/internal/eventbus"
	"github.com/sponsorhub/server/internal/jobs"
	"github.com/sponsorhub/server/internal/metrics"
	"github.com/sponsorhub/server/internal/storage"
	"github.com/sponsorhub/server/internal/storage/redis"
)

// Dependencies carries the process-level resources the router wires together.
// The serve command owns their lifecycles; the router only composes them.
type Dependencies struct {
	Pool         *pgxpool.Pool
	Repo         storage.Repository
	JobClient    jobs.Inserter
	RefreshStore auth.RefreshTokenStore
	Redis        *redis.Client
}

// NewRouter composes the HTTP surface: public auth endpoints, the guarded
// tenant API, and the operational endpoints.
func NewRouter(cfg config.Config, logger zerolog.Logger, deps Dependencies) http.Handler {
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.AccessExpiry, cfg.Auth.Issuer)
	refreshService := auth.NewRefreshService(verifier, deps.RefreshStore, cfg.Auth.RefreshExpiry)

	recorder := audit.NewRecorder(deps.Repo.Audit(), logger)
	bus := eventbus.New(logger)
	retry := jobs.RetrySettings{
		EmailAttempts:        cfg.Jobs.RetryEmail,
		NotificationAttempts: cfg.Jobs.RetryNotification,
	}
	jobs.NewListeners(deps.JobClient, deps.Repo.Directory(), retry, logger).Register(bus)

	proposalsService := proposals.NewService(deps.Repo.Proposals(), storage.NewProposalsUnit(deps.Repo, logger), bus, logger)
	verificationsService := verifications.NewService(deps.Repo.Verifications(), storage.NewVerificationsUnit(deps.Repo, logger), bus, logger)

	authHandler := handlers.NewAuthHandler(deps.Repo.Users(), refreshService, cfg.Environment)
	proposalsHandler := handlers.NewProposalsHandler(proposalsService, cfg.Environment)
	verificationsHandler := handlers.NewVerificationsHandler(verificationsService, cfg.Environment)
	auditHandler := handlers.NewAuditHandler(recorder, cfg.Environment)

	chain := guard.NewChain(verifier, cfg.Environment)

	authenticated := guard.Policy{}.WithTenantFromPath()
	sponsorWrite := guard.Roles(auth.RoleSponsor, auth.RoleAdmin).WithTenantFromPath()
	statusChange := guard.Roles(auth.RoleSponsor, auth.RoleOrganizer, auth.RoleManager, auth.RoleAdmin).WithTenantFromPath()
	verifierRoles := guard.Roles(auth.RoleManager, auth.RoleAdmin).WithTenantFromPath()
	auditRead := guard.Roles(auth.RoleManager, auth.RoleAdmin).WithTenantFromPath()
	adminOnly := guard.Roles(auth.RoleAdmin)

	mux := http.NewServeMux()
	readyz := handlers.Readyz(deps.Pool, nil)
	if deps.Redis != nil {
		readyz = handlers.Readyz(deps.Pool, deps.Redis)
	}
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", readyz)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Login),
	}))
	mux.Handle("/api/v1/auth/refresh", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.RefreshToken),
	}))

	mux.Handle("/api/v1/tenants/{tenantId}/proposals", methodMux(map[string]http.Handler{
		http.MethodGet:  chain.Protect(authenticated)(http.HandlerFunc(proposalsHandler.List)),
		http.MethodPost: chain.Protect(sponsorWrite)(http.HandlerFunc(proposalsHandler.Create)),
	}))
	mux.Handle("/api/v1/tenants/{tenantId}/proposals/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: chain.Protect(authenticated)(http.HandlerFunc(proposalsHandler.Get)),
	}))
	mux.Handle("/api/v1/tenants/{tenantId}/proposals/{id}/status", methodMux(map[string]http.Handler{
		http.MethodPatch: chain.Protect(statusChange)(http.HandlerFunc(proposalsHandler.ChangeStatus)),
	}))

	mux.Handle("/api/v1/tenants/{tenantId}/verifications/{entityType}/{entityId}", methodMux(map[string]http.Handler{
		http.MethodGet:  chain.Protect(authenticated)(http.HandlerFunc(verificationsHandler.Latest)),
		http.MethodPost: chain.Protect(verifierRoles)(http.HandlerFunc(verificationsHandler.Decide)),
	}))

	mux.Handle("/api/v1/tenants/{tenantId}/audit", methodMux(map[string]http.Handler{
		http.MethodGet: chain.Protect(auditRead)(http.HandlerFunc(auditHandler.Query)),
	}))
	mux.Handle("/api/v1/audit/{entityType}/{entityId}/history", methodMux(map[string]http.Handler{
		http.MethodGet: chain.Protect(adminOnly)(http.HandlerFunc(auditHandler.History)),
	}))

	var handler http.Handler = mux
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
