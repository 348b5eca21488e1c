package tokenclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeOK           = "ok"
	outcomeInvalidToken = "invalid_token"
	outcomeUnavailable  = "unavailable"
)

// requestsTotal counts calls made to the token service.
// Labels:
//   - operation: "issue", "resolve_identity", "resolve_role", "blacklist"
//   - outcome: "ok", "invalid_token" or "unavailable"
var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "token_service_requests_total",
		Help:      "Total number of token service calls, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// requestDuration measures the round trip of a single call, failures included.
var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "identity",
		Name:      "token_service_duration_seconds",
		Help:      "Duration of token service calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)
