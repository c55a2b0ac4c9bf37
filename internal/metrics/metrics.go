// Package metrics exposes the gateway's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// AuthRequests counts classified requests by processing mode.
	AuthRequests *prometheus.CounterVec
	// AuthTerminals counts gateway-issued terminal responses by status.
	AuthTerminals *prometheus.CounterVec
	// WebhookRejected counts webhook deliveries that failed verification.
	WebhookRejected prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_auth_requests_total",
			Help: "Authenticated requests by processing mode.",
		}, []string{"mode"}),
		AuthTerminals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_auth_terminals_total",
			Help: "Terminal responses issued by the gateway, by HTTP status.",
		}, []string{"status"}),
		WebhookRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_webhook_rejected_total",
			Help: "Webhook deliveries rejected before processing.",
		}),
	}
}
