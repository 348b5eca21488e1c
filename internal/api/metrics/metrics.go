// Package metrics defines the custom Prometheus metrics of the HTTP API.
// Outbound token service metrics live with the token client.
//
// Metrics are registered with the default Prometheus registry on package
// init through promauto and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Account metrics ───────────────────────────────────────────────────────────

// AccountOperationsTotal counts account operations handled by the API.
// Labels:
//   - operation: "register", "login", "logout", "update_me", "delete_me",
//     "delete_user", "generate_test_users", "purge_test_users"
//   - result: "ok" or the failure kind (e.g. "invalid_argument", "conflict")
var AccountOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_operations_total",
		Help:      "Total number of account operations, by operation and result.",
	},
	[]string{"operation", "result"},
)
