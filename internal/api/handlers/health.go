package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Healthz reports process liveness only.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

type pinger interface {
	Health(ctx context.Context) error
}

// Readyz reports whether the backing stores are reachable. Redis is optional;
// a nil client skips that check.
func Readyz(pool *pgxpool.Pool, redis pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var dbErr, redisErr error
		group, groupCtx := errgroup.WithContext(ctx)
		if pool != nil {
			group.Go(func() error {
				dbErr = pool.Ping(groupCtx)
				return nil
			})
		}
		if redis != nil {
			group.Go(func() error {
				redisErr = redis.Health(groupCtx)
				return nil
			})
		}
		_ = group.Wait()

		checks := map[string]string{}
		healthy := true

		switch {
		case pool == nil:
			checks["database"] = "not configured"
			healthy = false
		case dbErr != nil:
			checks["database"] = dbErr.Error()
			healthy = false
		default:
			checks["database"] = "ok"
		}

		if redis != nil {
			if redisErr != nil {
				checks["redis"] = redisErr.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "unavailable"
		}
		writeJSON(w, status, map[string]any{"status": state, "checks": checks})
	})
}
