package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all SponsorHub metrics
const namespace = "sponsorhub"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// GuardDecisions counts authorization guard outcomes by stage.
// Stages: authenticate, role, tenant. Outcomes: allowed, denied.
var GuardDecisions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Authorization guard decisions by stage and outcome",
	},
	[]string{"stage", "outcome"},
)

// AuditAppends counts successful audit log appends.
var AuditAppends = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_appends_total",
		Help:      "Total number of audit log entries appended",
	},
)

// AuditAppendFailures counts audit appends that failed after the triggering
// mutation committed.
var AuditAppendFailures = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_append_failures_total",
		Help:      "Total number of failed audit log appends",
	},
)

// EventsPublished counts domain events published on the in-process bus.
var EventsPublished = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_events_published_total",
		Help:      "Total number of domain events published, by tag",
	},
	[]string{"tag"},
)

// JobsProcessed counts job executions by kind and outcome (ok, error).
var JobsProcessed = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Total number of job executions by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

// JobsDiscarded counts jobs that exhausted their retry budget and were moved
// to the discarded state for operator inspection.
var JobsDiscarded = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_discarded_total",
		Help:      "Total number of jobs discarded after exhausting retries",
	},
	[]string{"kind"},
)

// HTTPRequests counts handled requests by method, route, and status class.
var HTTPRequests = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by method and status",
	},
	[]string{"method", "status"},
)
