// Package metrics defines the prometheus collectors for room activity
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imposter"

// Action outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RoomsCreated  prometheus.Counter
	PlayersJoined prometheus.Counter
	RoomsSwept    prometheus.Counter
	Actions       *prometheus.CounterVec
	SaveConflicts prometheus.Counter
	StoreDuration *prometheus.HistogramVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RoomsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created.",
		}),
		PlayersJoined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Players added to rooms, rejoins excluded.",
		}),
		RoomsSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_swept_total",
			Help:      "Idle rooms removed by the janitor.",
		}),
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Room actions by type and outcome.",
		}, []string{"action", "outcome"}),
		SaveConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_conflicts_total",
			Help:      "Saves rejected because the room changed since it was loaded.",
		}),
		StoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of room store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
	}
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.RoomsCreated.Inc()
	}
}

func (m *Metrics) PlayerJoined() {
	if m != nil {
		m.PlayersJoined.Inc()
	}
}

func (m *Metrics) Swept(n int) {
	if m != nil {
		m.RoomsSwept.Add(float64(n))
	}
}

func (m *Metrics) Action(action, outcome string) {
	if m != nil {
		m.Actions.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Metrics) Conflict() {
	if m != nil {
		m.SaveConflicts.Inc()
	}
}

// ObserveStore records how long a store operation took since start
func (m *Metrics) ObserveStore(op string, start time.Time) {
	if m != nil {
		m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
