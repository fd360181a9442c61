package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	platformmetrics "contribution-metrics/internal/platform/metrics"
)

// Metrics provides observability for the contributor module.
type Metrics struct {
	ContributorsTotal prometheus.Gauge
	LinkedTotal       prometheus.Gauge
	QueryDuration     *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ContributorsTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "contributors_total",
			Help: "Number of tracked GitHub contributors",
		}),
		LinkedTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "contributors_linked_total",
			Help: "Number of GitHub contributors linked to a user",
		}),
		QueryDuration: platformmetrics.QueryDuration(reg),
	}
}

func (m *Metrics) SetTotals(total, linked int) {
	m.ContributorsTotal.Set(float64(total))
	m.LinkedTotal.Set(float64(linked))
}

func (m *Metrics) ObserveQuery(operation string, start time.Time) {
	m.QueryDuration.WithLabelValues("contributors." + operation).Observe(time.Since(start).Seconds())
}
