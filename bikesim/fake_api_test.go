package bikesim

import (
	"fmt"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

// fakeSumo implements the toolkit's SUMO-facing interfaces in memory so
// component tests run without a simulator.
type fakeSumo struct {
	deltaT float64

	routes      map[string][]string          // route id -> edges
	routeParams map[string]map[string]string // route id -> key -> value
	lanes       map[string]fakeLane
	vehicles    map[string]*fakeVehicle

	added     []addedVehicle
	removed   []string
	slowDowns []speedCommand
	setSpeeds []speedCommand
	signalLog []int
}

type fakeLane struct {
	edge     string
	length   float64
	maxSpeed float64
	allowed  []string
	shape    []traci.Position
}

type fakeVehicle struct {
	pos     traci.Position
	speed   float64
	lanePos float64
	routeID string
	signals int
}

type addedVehicle struct {
	id      string
	routeID string
	params  traci.VehicleParams
}

type speedCommand struct {
	id       string
	speed    float64
	duration float64
}

func newFakeSumo() *fakeSumo {
	return &fakeSumo{
		deltaT:      1.0,
		routes:      make(map[string][]string),
		routeParams: make(map[string]map[string]string),
		lanes:       make(map[string]fakeLane),
		vehicles:    make(map[string]*fakeVehicle),
	}
}

func (f *fakeSumo) vehicle(id string) (*fakeVehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %q is not known", id)
	}
	return v, nil
}

func (f *fakeSumo) lane(id string) (fakeLane, error) {
	l, ok := f.lanes[id]
	if !ok {
		return fakeLane{}, fmt.Errorf("lane %q is not known", id)
	}
	return l, nil
}

// === FlowAPI ===

func (f *fakeSumo) AddRoute(routeID string, edges []string) error {
	if _, exists := f.routes[routeID]; exists {
		return fmt.Errorf("route %q already exists", routeID)
	}
	f.routes[routeID] = edges
	return nil
}

func (f *fakeSumo) SetRouteParameter(routeID, key, value string) error {
	if f.routeParams[routeID] == nil {
		f.routeParams[routeID] = make(map[string]string)
	}
	f.routeParams[routeID][key] = value
	return nil
}

func (f *fakeSumo) AddVehicle(vehID, routeID string, params traci.VehicleParams) error {
	f.added = append(f.added, addedVehicle{id: vehID, routeID: routeID, params: params})
	if _, exists := f.vehicles[vehID]; !exists {
		f.vehicles[vehID] = &fakeVehicle{routeID: routeID}
	}
	return nil
}

func (f *fakeSumo) DeltaT() (float64, error) {
	return f.deltaT, nil
}

// === ConflictAPI / LaneAPI ===

func (f *fakeSumo) RouteEdges(routeID string) ([]string, error) {
	edges, ok := f.routes[routeID]
	if !ok {
		return nil, fmt.Errorf("route %q is not known", routeID)
	}
	return edges, nil
}

func (f *fakeSumo) LaneIDs() ([]string, error) {
	ids := make([]string, 0, len(f.lanes))
	for id := range f.lanes {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeSumo) LaneLength(laneID string) (float64, error) {
	l, err := f.lane(laneID)
	return l.length, err
}

func (f *fakeSumo) LaneMaxSpeed(laneID string) (float64, error) {
	l, err := f.lane(laneID)
	return l.maxSpeed, err
}

func (f *fakeSumo) LaneEdgeID(laneID string) (string, error) {
	l, err := f.lane(laneID)
	return l.edge, err
}

func (f *fakeSumo) LaneAllowed(laneID string) ([]string, error) {
	l, err := f.lane(laneID)
	return l.allowed, err
}

func (f *fakeSumo) LaneShape(laneID string) ([]traci.Position, error) {
	l, err := f.lane(laneID)
	return l.shape, err
}

func (f *fakeSumo) RemoveVehicle(vehID string, reason byte) error {
	if _, err := f.vehicle(vehID); err != nil {
		return err
	}
	delete(f.vehicles, vehID)
	f.removed = append(f.removed, vehID)
	return nil
}

func (f *fakeSumo) VehicleSpeed(vehID string) (float64, error) {
	v, err := f.vehicle(vehID)
	if err != nil {
		return 0, err
	}
	return v.speed, nil
}

func (f *fakeSumo) VehicleLanePosition(vehID string) (float64, error) {
	v, err := f.vehicle(vehID)
	if err != nil {
		return 0, err
	}
	return v.lanePos, nil
}

func (f *fakeSumo) SlowDownVehicle(vehID string, speed, duration float64) error {
	if _, err := f.vehicle(vehID); err != nil {
		return err
	}
	f.slowDowns = append(f.slowDowns, speedCommand{id: vehID, speed: speed, duration: duration})
	return nil
}

// === MultiConflictAPI ===

func (f *fakeSumo) VehicleRouteID(vehID string) (string, error) {
	v, err := f.vehicle(vehID)
	if err != nil {
		return "", err
	}
	return v.routeID, nil
}

func (f *fakeSumo) VehiclePosition(vehID string) (traci.Position, error) {
	v, err := f.vehicle(vehID)
	if err != nil {
		return traci.Position{}, err
	}
	return v.pos, nil
}

func (f *fakeSumo) SetVehicleSpeed(vehID string, speed float64) error {
	if _, err := f.vehicle(vehID); err != nil {
		return err
	}
	f.setSpeeds = append(f.setSpeeds, speedCommand{id: vehID, speed: speed})
	return nil
}

// === SignalAPI ===

func (f *fakeSumo) VehicleIDs() ([]string, error) {
	ids := make([]string, 0, len(f.vehicles))
	for id := range f.vehicles {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeSumo) VehicleSignals(vehID string) (int, error) {
	v, err := f.vehicle(vehID)
	if err != nil {
		return 0, err
	}
	return v.signals, nil
}

func (f *fakeSumo) SetVehicleSignals(vehID string, signals int) error {
	v, err := f.vehicle(vehID)
	if err != nil {
		return err
	}
	f.signalLog = append(f.signalLog, signals)
	if signals >= 0 {
		v.signals = signals
	}
	return nil
}
