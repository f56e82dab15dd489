package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAssignment_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssignment(reg)

	m.Admitted(30)
	m.Admitted(15)
	m.Skipped(SkipCapacity)
	m.Skipped(SkipClaimed)
	m.Skipped(SkipCapacity)
	m.ObservePass(ResultOK, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.admitted))
	assert.Equal(t, 45.0, testutil.ToFloat64(m.revenue))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues(SkipCapacity)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues(SkipClaimed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues(ResultOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestAssignment_NilIsNoop(t *testing.T) {
	var m *Assignment
	assert.NotPanics(t, func() {
		m.Admitted(1)
		m.Skipped(SkipDestination)
		m.ObservePass(ResultError, time.Second)
	})
}

func TestNewAssignment_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewAssignment(reg)
	assert.Panics(t, func() { NewAssignment(reg) })
}
