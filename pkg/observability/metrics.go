package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tubelife"

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	State         *prometheus.GaugeVec
	Transitions   *prometheus.CounterVec
	Steps         *prometheus.CounterVec
	Cycles        prometheus.Counter
	CycleDuration prometheus.Histogram
	Ticks         prometheus.Counter
	Position      *prometheus.GaugeVec
	Force         *prometheus.GaugeVec
	Rejected      *prometheus.CounterVec

	mu        sync.Mutex
	lastCycle time.Time
}

// NewMetrics creates the collectors and registers them on reg (skipped if nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_state",
			Help:      "1 for the current run state, 0 otherwise",
		}, []string{"state"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Run-state transitions by command",
		}, []string{"command"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_dispatched_total",
			Help:      "Steps dispatched by type",
		}, []string{"type"}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_completed_total",
			Help:      "Completed traversals of the sequence",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time between consecutive cycle completions",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Applied scheduler ticks",
		}),
		Position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actuator_position_mm",
			Help:      "Actuator position",
		}, []string{"axis"}),
		Force: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actuator_force_percent",
			Help:      "Actuator force reading",
		}, []string{"axis"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Rejected commands by operation",
		}, []string{"operation"}),
	}
	m.setState(domain.StateIdle)

	if reg != nil {
		reg.MustRegister(m.State, m.Transitions, m.Steps, m.Cycles, m.CycleDuration,
			m.Ticks, m.Position, m.Force, m.Rejected)
	}
	return m
}

func (m *Metrics) setState(current domain.RunState) {
	for _, s := range []domain.RunState{domain.StateIdle, domain.StateRunning, domain.StatePaused} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.State.WithLabelValues(s.String()).Set(v)
	}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			m.setState(e.To)
			m.Transitions.WithLabelValues(string(e.Command)).Inc()
			if e.To == domain.StateIdle {
				m.mu.Lock()
				m.lastCycle = time.Time{}
				m.mu.Unlock()
			}
		},
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Kind)).Inc()
		},
		OnCycleComplete: func(_ context.Context, e *domain.CycleEvent) {
			m.Cycles.Inc()
			m.mu.Lock()
			defer m.mu.Unlock()
			if !m.lastCycle.IsZero() {
				m.CycleDuration.Observe(e.Timestamp.Sub(m.lastCycle).Seconds())
			}
			m.lastCycle = e.Timestamp
		},
		OnTick: func(_ context.Context, e *domain.TickEvent) {
			m.Ticks.Inc()
			m.Position.WithLabelValues("A").Set(e.A.Pos)
			m.Position.WithLabelValues("B").Set(e.B.Pos)
			m.Force.WithLabelValues("A").Set(e.A.Force)
			m.Force.WithLabelValues("B").Set(e.B.Force)
		},
		OnRejected: func(_ context.Context, e *domain.RejectEvent) {
			m.Rejected.WithLabelValues(e.Operation).Inc()
		},
	}
}
