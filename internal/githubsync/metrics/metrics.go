package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for organization member syncs.
type Metrics struct {
	Runs     *prometheus.CounterVec
	Members  *prometheus.CounterVec
	Duration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "github_sync_runs_total",
			Help: "Organization syncs by outcome",
		}, []string{"outcome"}),
		Members: f.NewCounterVec(prometheus.CounterOpts{
			Name: "github_sync_members_total",
			Help: "Members reconciled by sync, by outcome (created, updated, unchanged, failed)",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "github_sync_duration_seconds",
			Help:    "Duration of organization syncs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

func (m *Metrics) IncrementRun(outcome string) {
	m.Runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementMember(outcome string) {
	m.Members.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSync(start time.Time) {
	m.Duration.Observe(time.Since(start).Seconds())
}
