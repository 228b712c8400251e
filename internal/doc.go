// Package internal documents the SponsorHub server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, guard chain, middleware, and routing
// - domain: business logic and domain models
// - storage: database access and repositories (Postgres, Redis)
// - jobs: background workers and durable queues
// - auth, audit, eventbus, config, metrics: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
