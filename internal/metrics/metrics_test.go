package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RoomCreated()
	m.PlayerJoined()
	m.PlayerJoined()
	m.Swept(3)
	m.Action("vote", OutcomeOK)
	m.Action("vote", OutcomeOK)
	m.Action("guess", OutcomeRejected)
	m.Conflict()
	m.ObserveStore("load", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PlayersJoined))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RoomsSwept))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Actions.WithLabelValues("vote", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("guess", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveConflicts))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "imposter_store_operation_duration_seconds")
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RoomCreated()
		m.PlayerJoined()
		m.Swept(1)
		m.Action("vote", OutcomeOK)
		m.Conflict()
		m.ObserveStore("save", time.Now())
	})
}
