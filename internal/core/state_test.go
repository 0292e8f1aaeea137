package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTunables_Mode(t *testing.T) {
	assert.Equal(t, ModeFull, Tunables{}.Mode())
	assert.Equal(t, ModeEco, Tunables{EcoMode: true}.Mode())
}

func TestState_SetAgentState(t *testing.T) {
	tests := []struct {
		name    string
		path    []AgentState
		wantErr bool
	}{
		{"start and suspend", []AgentState{StateActive, StateSuspended, StateActive}, false},
		{"stop", []AgentState{StateActive, StateStopping, StateInactive}, false},
		{"suspend from inactive", []AgentState{StateSuspended}, true},
		{"resume from stopping", []AgentState{StateActive, StateStopping, StateSuspended}, true},
		{"idempotent", []AgentState{StateActive, StateActive}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(Tunables{})
			var err error
			for _, next := range tt.path {
				if err = s.SetAgentState(next); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestState_StartedAtLifecycle(t *testing.T) {
	s := NewState(Tunables{})
	assert.True(t, s.GetSnapshot().StartedAt.IsZero())

	require.NoError(t, s.SetAgentState(StateActive))
	started := s.GetSnapshot().StartedAt
	assert.False(t, started.IsZero())

	require.NoError(t, s.SetAgentState(StateSuspended))
	require.NoError(t, s.SetAgentState(StateActive))
	assert.Equal(t, started, s.GetSnapshot().StartedAt)

	require.NoError(t, s.SetAgentState(StateStopping))
	require.NoError(t, s.SetAgentState(StateInactive))
	assert.True(t, s.GetSnapshot().StartedAt.IsZero())
}

func TestState_UpdateTunablesAcceptsAnyValue(t *testing.T) {
	s := NewState(Tunables{Hysteresis: 8, FineShift: 3})

	got := s.UpdateTunables(func(t *Tunables) {
		t.FineShift = 99
		t.EcoMode = true
	})

	assert.Equal(t, uint(99), got.FineShift)
	assert.Equal(t, uint(8), got.Hysteresis)
	assert.Equal(t, got, s.Tunables())
}

func TestState_SnapshotIsDeepCopy(t *testing.T) {
	s := NewState(Tunables{})
	saved := map[int]uint{0: 1800000, 1: 1800000}
	s.UpdateSuspend(SuspendSnapshot{Suspended: true, SavedMaxKHz: saved})
	s.UpdateInputs(InputSnapshot{Devices: []string{"touchscreen"}})
	s.UpdateProbe(PlatformSummary{LatenciesMs: map[string]int64{"topology": 1}, Warnings: []string{"w"}})

	saved[0] = 1
	snap := s.GetSnapshot()
	assert.Equal(t, uint(1800000), snap.Suspend.SavedMaxKHz[0])

	snap.Suspend.SavedMaxKHz[1] = 2
	snap.Inputs.Devices[0] = "changed"
	snap.LastProbe.LatenciesMs["topology"] = 42

	again := s.GetSnapshot()
	assert.Equal(t, uint(1800000), again.Suspend.SavedMaxKHz[1])
	assert.Equal(t, "touchscreen", again.Inputs.Devices[0])
	assert.Equal(t, int64(1), again.LastProbe.LatenciesMs["topology"])
}

func TestState_BoostCounters(t *testing.T) {
	s := NewState(Tunables{})
	now := time.Now()

	s.RecordInputEvent()
	s.RecordInputEvent()
	s.RecordBoost(now)

	b := s.GetSnapshot().Boost
	assert.Equal(t, uint64(2), b.Events)
	assert.Equal(t, uint64(1), b.Count)
	assert.Equal(t, now, b.LastBoost)
}

func TestState_Warnings(t *testing.T) {
	s := NewState(Tunables{})
	s.AppendWarning("input: no devices")
	s.AppendWarning("")

	snap := s.GetSnapshot()
	require.Len(t, snap.Warnings, 1)
	snap.Warnings[0] = "mutated"
	assert.Equal(t, "input: no devices", s.GetSnapshot().Warnings[0])
}
