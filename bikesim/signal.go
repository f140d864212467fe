package bikesim

import (
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

// Vehicle signal bits, per the SUMO signal state definition.
const (
	SignalBlinkerRight     = 0
	SignalBlinkerLeft      = 1
	SignalBlinkerEmergency = 2
	SignalBrakeLight       = 3
	SignalFrontLight       = 4
)

// SignalAPI is the SUMO command surface a SignallingVehicle needs.
// *traci.Client satisfies it.
type SignalAPI interface {
	VehicleIDs() ([]string, error)
	VehiclePosition(vehID string) (traci.Position, error)
	VehicleSignals(vehID string) (int, error)
	SetVehicleSignals(vehID string, signals int) error
}

// Signal is one controllable vehicle signal bit with an optional blink
// pattern (alternating on/off durations in seconds). A nil pattern means
// the light is steady while enabled.
type Signal struct {
	Bit uint

	pattern     []float64
	enabled     bool
	patternIdx  int
	lastChanged float64
	state       bool
}

// NewSignal creates a Signal for the given bit. pattern lists alternating
// on/off durations; nil means steady on while enabled.
func NewSignal(bit uint, pattern []float64) *Signal {
	if pattern == nil {
		pattern = []float64{math.Inf(1), 0}
	}
	return &Signal{Bit: bit, pattern: pattern}
}

// Enable starts the signal's pattern from the beginning at time now.
// Enabling an already-enabled signal does not restart the pattern.
func (s *Signal) Enable(now float64) {
	if s.enabled {
		return
	}
	s.enabled = true
	s.patternIdx = 0
	s.lastChanged = now
}

// Disable turns the signal off.
func (s *Signal) Disable() {
	s.enabled = false
}

// Update advances the blink pattern to time now.
func (s *Signal) Update(now float64) {
	if !s.enabled {
		s.state = false
		return
	}
	if now-s.lastChanged >= s.pattern[s.patternIdx] {
		s.patternIdx = (s.patternIdx + 1) % len(s.pattern)
		s.lastChanged = now
	}
	// even pattern index -> light on, odd -> light off
	s.state = s.patternIdx%2 == 0
}

// State reports whether the light is currently on.
func (s *Signal) State() bool {
	return s.state
}

// controlledSignal binds a Signal to its enabling and disabling triggers.
type controlledSignal struct {
	signal         *Signal
	enableTrigger  *Trigger
	disableTrigger *Trigger
	enableEvent    TriggerEvent
	disableEvent   TriggerEvent
}

// SignalBinding configures AddControlledSignal. Nil triggers leave the
// corresponding transition manual; zero-valued events default to Entry.
type SignalBinding struct {
	EnableTrigger  *Trigger
	DisableTrigger *Trigger
	EnableEvent    TriggerEvent
	DisableEvent   TriggerEvent
}

// SignallingVehicle controls a vehicle's signals, either manually or via
// triggers evaluated against the vehicle's own position.
type SignallingVehicle struct {
	ID string

	api     SignalAPI
	signals []controlledSignal
}

// NewSignallingVehicle creates a signal controller for the named vehicle.
func NewSignallingVehicle(api SignalAPI, vehID string) *SignallingVehicle {
	return &SignallingVehicle{ID: vehID, api: api}
}

// AddControlledSignal registers a Signal, optionally bound to triggers.
func (sv *SignallingVehicle) AddControlledSignal(signal *Signal, binding SignalBinding) {
	if binding.EnableEvent == NoChange {
		binding.EnableEvent = Entry
	}
	if binding.DisableEvent == NoChange {
		binding.DisableEvent = Entry
	}
	sv.signals = append(sv.signals, controlledSignal{
		signal:         signal,
		enableTrigger:  binding.EnableTrigger,
		disableTrigger: binding.DisableTrigger,
		enableEvent:    binding.EnableEvent,
		disableEvent:   binding.DisableEvent,
	})
}

// Update checks triggers and writes the composed signal mask to SUMO. Must
// be called every simulation step; vehicles not yet (or no longer) in the
// network are skipped silently.
func (sv *SignallingVehicle) Update(now float64) error {
	ids, err := sv.api.VehicleIDs()
	if err != nil {
		return fmt.Errorf("signals %s: list vehicles: %w", sv.ID, err)
	}
	if !slices.Contains(ids, sv.ID) {
		return nil
	}
	// drop any previous override so the simulation's own bits are current
	if err := sv.api.SetVehicleSignals(sv.ID, -1); err != nil {
		return fmt.Errorf("signals %s: clear override: %w", sv.ID, err)
	}
	mask, err := sv.api.VehicleSignals(sv.ID)
	if err != nil {
		return fmt.Errorf("signals %s: read state: %w", sv.ID, err)
	}
	pos, err := sv.api.VehiclePosition(sv.ID)
	if err != nil {
		return fmt.Errorf("signals %s: position: %w", sv.ID, err)
	}
	point := orb.Point{pos.X, pos.Y}
	for _, cs := range sv.signals {
		if cs.enableTrigger != nil && cs.enableTrigger.Check(point) == cs.enableEvent {
			cs.signal.Enable(now)
		}
		if cs.disableTrigger != nil && cs.disableTrigger.Check(point) == cs.disableEvent {
			cs.signal.Disable()
		}
		cs.signal.Update(now)
		if cs.signal.State() {
			mask |= 1 << cs.signal.Bit
		} else {
			mask &^= 1 << cs.signal.Bit
		}
	}
	if err := sv.api.SetVehicleSignals(sv.ID, mask); err != nil {
		return fmt.Errorf("signals %s: write state: %w", sv.ID, err)
	}
	return nil
}
