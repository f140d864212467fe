package bikesim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

// FlowAPI is the SUMO command surface a DynamicFlow needs. *traci.Client
// satisfies it.
type FlowAPI interface {
	AddRoute(routeID string, edges []string) error
	SetRouteParameter(routeID, key, value string) error
	AddVehicle(vehID, routeID string, params traci.VehicleParams) error
	DeltaT() (float64, error)
}

// FlowConfig configures a DynamicFlow. Zero-valued optional fields fall
// back to the documented defaults.
type FlowConfig struct {
	Origin      string  // 'from' edge of the route
	Destination string  // 'to' edge of the route
	Probability float64 // probability of emitting a vehicle each second

	VehicleMix   map[string]float64 // type id -> weight (default {"passenger": 1})
	DepartSpeed  string             // default "max"
	ArrivalSpeed string             // default "current"
	Via          string             // intermediate edges, space separated
	Name         string             // route name (default "origin-destination")
	Disabled     bool               // start disabled
}

// DynamicFlow injects vehicles onto a registered route with a fixed
// per-second probability and a weighted vehicle-type mix. Run must be
// called every simulation step.
type DynamicFlow struct {
	Name string

	api         FlowAPI
	rng         *rand.Rand
	probability float64
	deltaT      float64
	enabled     bool
	count       int

	departSpeed  string
	arrivalSpeed string

	// mix weights in deterministic (sorted) type order, cumulative for the
	// draw
	mixTypes  []string
	mixCumSum []float64
}

// NewDynamicFlow registers the flow's route with SUMO and returns the flow.
func NewDynamicFlow(api FlowAPI, cfg FlowConfig, rng *rand.Rand) (*DynamicFlow, error) {
	if cfg.Origin == "" || cfg.Destination == "" {
		return nil, fmt.Errorf("flow needs origin and destination, got %q -> %q", cfg.Origin, cfg.Destination)
	}
	if cfg.Probability < 0 || cfg.Probability > 1 {
		return nil, fmt.Errorf("flow %s: probability %v outside [0, 1]", cfg.Name, cfg.Probability)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Origin + "-" + cfg.Destination
	}
	mix := cfg.VehicleMix
	if len(mix) == 0 {
		mix = map[string]float64{"passenger": 1}
	}
	types := make([]string, 0, len(mix))
	for t := range mix {
		types = append(types, t)
	}
	sort.Strings(types)
	weights := make([]float64, len(types))
	for i, t := range types {
		if mix[t] < 0 {
			return nil, fmt.Errorf("flow %s: negative weight for type %q", name, t)
		}
		weights[i] = mix[t]
	}
	cumSum := make([]float64, len(weights))
	floats.CumSum(cumSum, weights)
	if cumSum[len(cumSum)-1] <= 0 {
		return nil, fmt.Errorf("flow %s: vehicle mix weights sum to zero", name)
	}

	if err := api.AddRoute(name, []string{cfg.Origin, cfg.Destination}); err != nil {
		return nil, fmt.Errorf("flow %s: register route: %w", name, err)
	}
	if err := api.SetRouteParameter(name, "via", cfg.Via); err != nil {
		return nil, fmt.Errorf("flow %s: set via: %w", name, err)
	}
	deltaT, err := api.DeltaT()
	if err != nil {
		return nil, fmt.Errorf("flow %s: query step length: %w", name, err)
	}

	departSpeed := cfg.DepartSpeed
	if departSpeed == "" {
		departSpeed = "max"
	}
	arrivalSpeed := cfg.ArrivalSpeed
	if arrivalSpeed == "" {
		arrivalSpeed = "current"
	}

	return &DynamicFlow{
		Name:         name,
		api:          api,
		rng:          rng,
		probability:  cfg.Probability,
		deltaT:       deltaT,
		enabled:      !cfg.Disabled,
		departSpeed:  departSpeed,
		arrivalSpeed: arrivalSpeed,
		mixTypes:     types,
		mixCumSum:    cumSum,
	}, nil
}

// Enable turns vehicle emission on.
func (f *DynamicFlow) Enable() {
	f.enabled = true
}

// Disable turns vehicle emission off.
func (f *DynamicFlow) Disable() {
	f.enabled = false
}

// Enabled reports whether the flow currently emits vehicles.
func (f *DynamicFlow) Enabled() bool {
	return f.enabled
}

// Count returns the number of vehicles this flow has inserted.
func (f *DynamicFlow) Count() int {
	return f.count
}

// drawType picks a vehicle type from the weighted mix.
func (f *DynamicFlow) drawType() string {
	total := f.mixCumSum[len(f.mixCumSum)-1]
	u := f.rng.Float64() * total
	for i, c := range f.mixCumSum {
		if u < c {
			return f.mixTypes[i]
		}
	}
	return f.mixTypes[len(f.mixTypes)-1]
}

// Run processes the flow for one simulation step and inserts a vehicle if
// the per-step draw fires.
func (f *DynamicFlow) Run() error {
	if !f.enabled {
		return nil
	}
	if f.rng.Float64() >= f.probability*f.deltaT {
		return nil
	}
	vehID := fmt.Sprintf("%s.%d", f.Name, f.count)
	typeID := f.drawType()
	err := f.api.AddVehicle(vehID, f.Name, traci.VehicleParams{
		TypeID:       typeID,
		DepartSpeed:  f.departSpeed,
		ArrivalSpeed: f.arrivalSpeed,
	})
	if err != nil {
		return fmt.Errorf("flow %s: insert vehicle %s: %w", f.Name, vehID, err)
	}
	logrus.Debugf("flow %s: inserted %s (type %s)", f.Name, vehID, typeID)
	f.count++
	return nil
}
