package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	platformmetrics "contribution-metrics/internal/platform/metrics"
)

// Metrics provides observability for the organization module, including the
// read-through cache in front of the store.
type Metrics struct {
	OrganizationsTotal prometheus.Gauge
	QueryDuration      *prometheus.HistogramVec
	CacheRequests      *prometheus.CounterVec
	TokenRefreshes     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrganizationsTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "github_organizations_total",
			Help: "Number of registered GitHub organizations",
		}),
		QueryDuration: platformmetrics.QueryDuration(reg),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "organization_cache_requests_total",
			Help: "Organization cache lookups by result (hit, miss, error, bypass)",
		}, []string{"result"}),
		TokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "github_token_refreshes_total",
			Help: "GitHub App installation token refreshes by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) SetOrganizationsTotal(n int) {
	m.OrganizationsTotal.Set(float64(n))
}

// ObserveQuery records the duration of a store operation.
func (m *Metrics) ObserveQuery(operation string, start time.Time) {
	m.QueryDuration.WithLabelValues("organizations." + operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCache(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokenRefresh(outcome string) {
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}
