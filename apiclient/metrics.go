package apiclient

import (
	"strconv"

	imetrics "github.com/jrsteele09/go-imagen-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	replays   *prometheus.CounterVec
	pending   prometheus.Gauge
}

// newMetrics registers the client collectors with reg. Clients sharing a
// registry share collectors. A nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requests: imetrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagen_api_requests_total",
			Help: "API requests sent, by method and status code (0 for transport failures).",
		}, []string{"method", "code"})),
		refreshes: imetrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagen_api_refresh_total",
			Help: "Token refresh attempts by outcome.",
		}, []string{"outcome"})),
		replays: imetrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagen_api_replays_total",
			Help: "Requests replayed after a token refresh, by outcome.",
		}, []string{"outcome"})),
		pending: imetrics.Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imagen_api_pending_requests",
			Help: "Requests waiting for an in-flight token refresh.",
		})),
	}
}

func (m *metrics) observeRequest(method string, code int) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
