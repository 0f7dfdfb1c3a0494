// Package metrics exposes tracker counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the tracker's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sweeps        *prometheus.CounterVec
	spawned       prometheus.Counter
	expired       prometheus.Counter
	fallbacks     prometheus.Counter
	mode          prometheus.Gauge
	tasksTotal    *prometheus.CounterVec
	goalsComplete prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "sweeps_total",
			Help:      "Recurrence sweeps by outcome (ran, skipped).",
		}, []string{"outcome"}),
		spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "instances_spawned_total",
			Help:      "Task instances created from repeat templates.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "tasks_expired_total",
			Help:      "Pending tasks moved to expired after their deadline.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "remote_fallbacks_total",
			Help:      "Switches from the remote backend to the local cache.",
		}),
		mode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tracker",
			Name:      "remote_mode",
			Help:      "1 while the remote backend is active, 0 in local mode.",
		}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "task_transitions_total",
			Help:      "Task status transitions by target status.",
		}, []string{"status"}),
		goalsComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "goals_completed_total",
			Help:      "Goals moved to completed.",
		}),
	}
	m.registry.MustRegister(m.sweeps, m.spawned, m.expired, m.fallbacks, m.mode, m.tasksTotal, m.goalsComplete)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SweepRan(expired, spawned int) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues("ran").Inc()
	m.expired.Add(float64(expired))
	m.spawned.Add(float64(spawned))
}

func (m *Metrics) SweepSkipped() {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues("skipped").Inc()
}

func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) SetRemote(remote bool) {
	if m == nil {
		return
	}
	if remote {
		m.mode.Set(1)
	} else {
		m.mode.Set(0)
	}
}

func (m *Metrics) TaskTransition(status string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) GoalCompleted() {
	if m == nil {
		return
	}
	m.goalsComplete.Inc()
}
