package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the worker's Prometheus collectors.
type Metrics struct {
	CyclesTotal         prometheus.Counter
	CycleDuration       prometheus.Histogram
	TenantFailuresTotal prometheus.Counter
	IssuesDetectedTotal *prometheus.CounterVec
	PlaybookRunsTotal   *prometheus.CounterVec
}

// NewMetrics registers the worker collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hostwarden",
			Subsystem: "worker",
			Name:      "cycles_total",
			Help:      "Completed remediation cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hostwarden",
			Subsystem: "worker",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one remediation cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TenantFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hostwarden",
			Subsystem: "worker",
			Name:      "tenant_failures_total",
			Help:      "Tenant evaluations that ended in an error.",
		}),
		IssuesDetectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostwarden",
			Subsystem: "worker",
			Name:      "issues_detected_total",
			Help:      "Issues opened, labeled by issue type.",
		}, []string{"issue_type"}),
		PlaybookRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostwarden",
			Subsystem: "worker",
			Name:      "playbook_runs_total",
			Help:      "Playbook executions, labeled by playbook and outcome.",
		}, []string{"playbook", "outcome"}),
	}
	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.TenantFailuresTotal,
		m.IssuesDetectedTotal,
		m.PlaybookRunsTotal,
	)
	return m
}
