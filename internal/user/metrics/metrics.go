package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	platformmetrics "contribution-metrics/internal/platform/metrics"
)

// Metrics provides observability for the user module.
type Metrics struct {
	UsersTotal    prometheus.Gauge
	QueryDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		UsersTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "users_total",
			Help: "Number of registered users",
		}),
		QueryDuration: platformmetrics.QueryDuration(reg),
	}
}

func (m *Metrics) SetUsersTotal(n int) {
	m.UsersTotal.Set(float64(n))
}

func (m *Metrics) IncrementUsers() {
	m.UsersTotal.Inc()
}

func (m *Metrics) DecrementUsers() {
	m.UsersTotal.Dec()
}

// ObserveQuery records the duration of a store operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveQuery(operation string, start time.Time) {
	m.QueryDuration.WithLabelValues("users." + operation).Observe(time.Since(start).Seconds())
}
