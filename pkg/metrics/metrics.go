package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	authDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_decisions_total",
			Help: "Authorization pipeline decisions by outcome and reason.",
		},
		[]string{"outcome", "reason"},
	)

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Tokens issued by type (access, refresh).",
		},
		[]string{"type"},
	)

	revocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_revocations_total",
			Help: "Token revocation records written.",
		},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(authDecisions, tokensIssued, revocations)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthAllowed counts a request admitted by the pipeline.
func AuthAllowed() {
	authDecisions.WithLabelValues("allowed", "ok").Inc()
}

// AuthDenied counts a pipeline denial with its stable error code.
func AuthDenied(reason string) {
	authDecisions.WithLabelValues("denied", reason).Inc()
}

// TokenIssued counts an issued token by type.
func TokenIssued(tokenType string) {
	tokensIssued.WithLabelValues(tokenType).Inc()
}

// TokenRevoked counts a written revocation record.
func TokenRevoked() {
	revocations.Inc()
}
