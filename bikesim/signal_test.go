package bikesim

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

func TestSignal_SteadyWhileEnabled(t *testing.T) {
	s := NewSignal(SignalBrakeLight, nil)

	s.Update(0)
	assert.False(t, s.State(), "off before enable")

	s.Enable(1)
	for now := 1.0; now < 100; now++ {
		s.Update(now)
		assert.True(t, s.State())
	}

	s.Disable()
	s.Update(100)
	assert.False(t, s.State())
}

func TestSignal_BlinkPattern(t *testing.T) {
	// 2 s on, 1 s off
	s := NewSignal(SignalBlinkerLeft, []float64{2, 1})
	s.Enable(0)

	states := make([]bool, 0, 6)
	for now := 0.0; now < 6; now++ {
		s.Update(now)
		states = append(states, s.State())
	}
	assert.Equal(t, []bool{true, true, false, true, true, false}, states)
}

func TestSignal_EnableDoesNotRestartPattern(t *testing.T) {
	s := NewSignal(SignalBlinkerRight, []float64{2, 2})
	s.Enable(0)
	s.Update(0)
	s.Update(2) // pattern flips to off
	assert.False(t, s.State())

	s.Enable(3)
	s.Update(3)
	assert.False(t, s.State(), "re-enabling must not reset the phase")
}

func TestSignallingVehicle_TriggerControlsBit(t *testing.T) {
	api := newFakeSumo()
	api.vehicles["bike"] = &fakeVehicle{pos: traci.Position{X: 0, Y: 112}}

	enable, err := NewTrigger("on", []orb.Point{{50, 100}, {100, 100}, {100, 150}, {50, 150}})
	require.NoError(t, err)
	disable, err := NewTrigger("off", []orb.Point{{200, 100}, {250, 100}, {250, 150}, {200, 150}})
	require.NoError(t, err)

	sv := NewSignallingVehicle(api, "bike")
	sv.AddControlledSignal(NewSignal(SignalBlinkerLeft, nil), SignalBinding{
		EnableTrigger:  enable,
		DisableTrigger: disable,
	})

	require.NoError(t, sv.Update(0))
	assert.Zero(t, api.vehicles["bike"].signals, "outside both triggers")

	api.vehicles["bike"].pos = traci.Position{X: 60, Y: 112}
	require.NoError(t, sv.Update(1))
	assert.Equal(t, 1<<SignalBlinkerLeft, api.vehicles["bike"].signals)

	// still on between the triggers
	api.vehicles["bike"].pos = traci.Position{X: 150, Y: 112}
	require.NoError(t, sv.Update(2))
	assert.Equal(t, 1<<SignalBlinkerLeft, api.vehicles["bike"].signals)

	api.vehicles["bike"].pos = traci.Position{X: 220, Y: 112}
	require.NoError(t, sv.Update(3))
	assert.Zero(t, api.vehicles["bike"].signals)
}

func TestSignallingVehicle_ClearsOverrideBeforeComposing(t *testing.T) {
	api := newFakeSumo()
	api.vehicles["bike"] = &fakeVehicle{}

	sv := NewSignallingVehicle(api, "bike")
	require.NoError(t, sv.Update(0))

	// every update first releases the override (-1) and then writes the mask
	require.Len(t, api.signalLog, 2)
	assert.Equal(t, -1, api.signalLog[0])
}

func TestSignallingVehicle_PreservesForeignBits(t *testing.T) {
	api := newFakeSumo()
	// brake light already set by the simulation itself
	api.vehicles["bike"] = &fakeVehicle{signals: 1 << SignalBrakeLight}

	sv := NewSignallingVehicle(api, "bike")
	sig := NewSignal(SignalBlinkerRight, nil)
	sv.AddControlledSignal(sig, SignalBinding{})
	sig.Enable(0)

	require.NoError(t, sv.Update(0))
	assert.Equal(t, 1<<SignalBrakeLight|1<<SignalBlinkerRight, api.vehicles["bike"].signals)
}

func TestSignallingVehicle_SkipsAbsentVehicle(t *testing.T) {
	api := newFakeSumo()
	sv := NewSignallingVehicle(api, "ghost")
	require.NoError(t, sv.Update(0))
	assert.Empty(t, api.signalLog)
}
