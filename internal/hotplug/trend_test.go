package hotplug

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTrendFirstCallHasNoElapsedTime(t *testing.T) {
	var s TrendState
	s = s.Update(t0, 40, 2)
	require.NotNil(t, s.LastSample)
	assert.Equal(t, time.Duration(0), s.Accumulated)
	assert.False(t, s.Escalate)
}

func TestTrendEscalatesOnSustainedDepth(t *testing.T) {
	var s TrendState
	s = s.Update(t0, 25, 2)
	s = s.Update(t0.Add(100*time.Millisecond), 25, 2)
	assert.False(t, s.Escalate, "100ms is below the 140ms window")

	s = s.Update(t0.Add(150*time.Millisecond), 25, 2)
	assert.True(t, s.Escalate)
	assert.Equal(t, 150*time.Millisecond, s.Accumulated)
}

func TestTrendMiddleZoneResetsAndKeepsDecision(t *testing.T) {
	s := TrendState{Accumulated: time.Second, LastSample: &t0, Escalate: true}

	// 11 < 15 < 19 for two online cores
	s = s.Update(t0.Add(50*time.Millisecond), 15, 2)
	assert.Equal(t, time.Duration(0), s.Accumulated)
	assert.True(t, s.Escalate)

	s.Escalate = false
	s = s.Update(t0.Add(80*time.Millisecond), 15, 3)
	assert.Equal(t, time.Duration(0), s.Accumulated)
	assert.False(t, s.Escalate)
}

func TestTrendDeescalates(t *testing.T) {
	s := TrendState{LastSample: &t0, Escalate: true}

	s = s.Update(t0.Add(100*time.Millisecond), 5, 2)
	assert.True(t, s.Escalate, "de-escalation window not reached")

	s = s.Update(t0.Add(200*time.Millisecond), 5, 2)
	assert.False(t, s.Escalate)
}

func TestTrendSingleCoreDeescalatesImmediately(t *testing.T) {
	s := TrendState{Escalate: true}
	s = s.Update(t0, 10, 1)
	assert.False(t, s.Escalate)

	// the escalate band is checked first where the two bands overlap
	s = TrendState{Escalate: true}
	s = s.Update(t0, 25, 1)
	assert.True(t, s.Escalate)
}

func TestTrendNeverEscalatesAtFourCores(t *testing.T) {
	s := TrendState{LastSample: &t0}
	s = s.Update(t0.Add(time.Second), 200, 4)
	assert.False(t, s.Escalate)
	assert.Equal(t, time.Duration(0), s.Accumulated)
}

func TestMergeEscalation(t *testing.T) {
	tests := []struct {
		target, online int
		escalate       bool
		want           int
	}{
		{2, 2, true, 3},
		{2, 3, true, 4},
		{1, 3, true, 4},
		{2, 1, true, 2},
		{2, 4, true, 2},
		{2, 2, false, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mergeEscalation(tt.target, tt.escalate, tt.online),
			"target=%d online=%d escalate=%v", tt.target, tt.online, tt.escalate)
	}
}
