package observability

import (
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Run results recorded by RecordRun.
const (
	ResultRotated   = "rotated"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
)

// Metrics holds the collectors for deployment runs.
type Metrics struct {
	runs        *prometheus.CounterVec
	primes      *prometheus.CounterVec
	conflicts   prometheus.Counter
	slotVersion *prometheus.GaugeVec
	activeSlot  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluegreen_runs_total",
				Help: "Total number of deployment runs by result",
			},
			[]string{"result"},
		),
		primes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bluegreen_prime_total",
				Help: "Total number of state retrievals by outcome",
			},
			[]string{"outcome"},
		),
		conflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bluegreen_commit_conflicts_total",
				Help: "Total number of commits rejected because the state changed concurrently",
			},
		),
		slotVersion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bluegreen_slot_version",
				Help: "Version assigned to each slot by the last committed run",
			},
			[]string{"slot"},
		),
		activeSlot: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bluegreen_active_slot",
				Help: "1 for the slot that received the current version, 0 otherwise",
			},
			[]string{"slot"},
		),
	}
	reg.MustRegister(m.runs, m.primes, m.conflicts, m.slotVersion, m.activeSlot)
	return m
}

// RecordPrime counts a retrieval outcome.
func (m *Metrics) RecordPrime(outcome string) {
	if m == nil {
		return
	}
	m.primes.WithLabelValues(outcome).Inc()
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

// RecordConflict counts a rejected conditional commit.
func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// RecordState publishes the committed state.
func (m *Metrics) RecordState(state domain.RotationState) {
	if m == nil {
		return
	}
	assignment := state.Assignment()
	for _, slot := range domain.Slots {
		m.slotVersion.WithLabelValues(slot.String()).Set(float64(assignment.For(slot)))
		active := 0.0
		if slot == state.ActiveSlot {
			active = 1
		}
		m.activeSlot.WithLabelValues(slot.String()).Set(active)
	}
}
