// Package metrics defines the custom Prometheus metrics of the user API.
// Request-level metrics (latency, status codes) come from the echoprometheus
// middleware; the collectors here count domain outcomes.
//
// All collectors register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userapi"

// ── Failure metrics ───────────────────────────────────────────────────────────

// RequestErrorsTotal counts requests that ended in a typed failure.
// Labels:
//   - kind: "forbidden", "invalid_input", "not_found", "conflict",
//     "unauthorized", "store_failure" or "internal"
//   - route: the matched route pattern (e.g. "/users/:id")
var RequestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_errors_total",
		Help:      "Total number of requests rejected with a typed failure.",
	},
	[]string{"kind", "route"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersCreatedTotal counts accounts created through registration or admin bootstrap.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of user accounts created.",
	},
)

// WatchItemsAddedTotal counts watch-list entries appended.
// Label:
//   - kind: "movie" or "tv"
var WatchItemsAddedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watch_items_added_total",
		Help:      "Total number of watch-list entries added, by kind.",
	},
	[]string{"kind"},
)
