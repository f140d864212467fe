package bikesim

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

// MultiConflictAPI is the SUMO command surface a MultiConflict needs.
// *traci.Client satisfies it.
type MultiConflictAPI interface {
	RouteEdges(routeID string) ([]string, error)
	LaneShape(laneID string) ([]traci.Position, error)
	VehicleRouteID(vehID string) (string, error)
	VehicleSpeed(vehID string) (float64, error)
	VehiclePosition(vehID string) (traci.Position, error)
	SetVehicleSpeed(vehID string, speed float64) error
}

// conflictTarget is one managed meeting point, expressed as stations along
// the two trajectories.
type conflictTarget struct {
	egoStation   float64
	cvStation    float64
	releasePoint float64
}

// MultiConflict coordinates a conflict vehicle to arrive simultaneously
// with the ego vehicle at a sequence of points along their respective
// routes. Targets engage in the order they were added: once the ego vehicle
// comes within the release distance of the current target, the next target
// takes over.
type MultiConflict struct {
	egoID string
	cvID  string

	api          MultiConflictAPI
	egoTraj      orb.LineString
	cvTraj       orb.LineString
	targets      []conflictTarget
	releasePoint float64
}

// MultiConflictConfig configures a MultiConflict.
type MultiConflictConfig struct {
	EgoID         string  // ego vehicle id
	ConflictID    string  // conflict vehicle id
	EgoRoute      string  // ego route id (empty = query the vehicle)
	ConflictRoute string  // conflict route id (empty = query the vehicle)
	ReleasePoint  float64 // default release distance (m), default 10
}

// NewMultiConflict resolves both routes to trajectories and returns the
// coordinator. Both vehicles must already be known to SUMO unless their
// routes are given explicitly.
func NewMultiConflict(api MultiConflictAPI, cfg MultiConflictConfig) (*MultiConflict, error) {
	if cfg.EgoID == "" || cfg.ConflictID == "" {
		return nil, fmt.Errorf("multiconflict needs ego and conflict vehicle ids")
	}
	egoRoute := cfg.EgoRoute
	if egoRoute == "" {
		var err error
		egoRoute, err = api.VehicleRouteID(cfg.EgoID)
		if err != nil {
			return nil, fmt.Errorf("multiconflict: ego route: %w", err)
		}
	}
	cvRoute := cfg.ConflictRoute
	if cvRoute == "" {
		var err error
		cvRoute, err = api.VehicleRouteID(cfg.ConflictID)
		if err != nil {
			return nil, fmt.Errorf("multiconflict: conflict route: %w", err)
		}
	}
	egoTraj, err := routeLine(api, egoRoute)
	if err != nil {
		return nil, fmt.Errorf("multiconflict: ego trajectory: %w", err)
	}
	cvTraj, err := routeLine(api, cvRoute)
	if err != nil {
		return nil, fmt.Errorf("multiconflict: conflict trajectory: %w", err)
	}
	releasePoint := cfg.ReleasePoint
	if releasePoint == 0 {
		releasePoint = 10
	}
	return &MultiConflict{
		egoID:        cfg.EgoID,
		cvID:         cfg.ConflictID,
		api:          api,
		egoTraj:      egoTraj,
		cvTraj:       cvTraj,
		releasePoint: releasePoint,
	}, nil
}

// routeLine converts a SUMO route to a polyline by concatenating the
// rightmost-lane shapes of its edges.
func routeLine(api MultiConflictAPI, routeID string) (orb.LineString, error) {
	edges, err := api.RouteEdges(routeID)
	if err != nil {
		return nil, err
	}
	var line orb.LineString
	for _, edge := range edges {
		shape, err := api.LaneShape(edge + "_0")
		if err != nil {
			return nil, err
		}
		for _, p := range shape {
			line = append(line, orb.Point{p.X, p.Y})
		}
	}
	if len(line) < 2 {
		return nil, fmt.Errorf("route %s yields no usable geometry", routeID)
	}
	return line, nil
}

// AddTarget adds a meeting point: the ego coordinate and the conflict
// vehicle coordinate are each projected onto the respective trajectory. A
// zero releasePoint uses the coordinator's default.
func (mc *MultiConflict) AddTarget(egoCoords, cvCoords orb.Point, releasePoint float64) {
	if releasePoint == 0 {
		releasePoint = mc.releasePoint
	}
	mc.targets = append(mc.targets, conflictTarget{
		egoStation:   Station(mc.egoTraj, egoCoords),
		cvStation:    Station(mc.cvTraj, cvCoords),
		releasePoint: releasePoint,
	})
}

// Remaining returns the number of targets not yet passed.
func (mc *MultiConflict) Remaining() int {
	return len(mc.targets)
}

// Check compares both vehicles' progress toward the current target and
// adjusts the conflict vehicle's speed so the arrivals coincide. Call every
// simulation step.
func (mc *MultiConflict) Check() error {
	if len(mc.targets) == 0 {
		return nil
	}
	target := mc.targets[0]

	egoSpeed, err := mc.api.VehicleSpeed(mc.egoID)
	if err != nil {
		return fmt.Errorf("multiconflict: ego speed: %w", err)
	}
	if egoSpeed < minSpeed {
		egoSpeed = minSpeed
	}
	egoPos, err := mc.api.VehiclePosition(mc.egoID)
	if err != nil {
		return fmt.Errorf("multiconflict: ego position: %w", err)
	}
	egoStation := Station(mc.egoTraj, orb.Point{egoPos.X, egoPos.Y})

	if target.egoStation-egoStation <= target.releasePoint {
		// target reached, the next one takes over
		mc.targets = mc.targets[1:]
		return nil
	}

	egoETA := (target.egoStation - egoStation) / egoSpeed
	cvPos, err := mc.api.VehiclePosition(mc.cvID)
	if err != nil {
		return fmt.Errorf("multiconflict: conflict position: %w", err)
	}
	cvStation := Station(mc.cvTraj, orb.Point{cvPos.X, cvPos.Y})
	desiredSpeed := (target.cvStation - cvStation) / egoETA
	if err := mc.api.SetVehicleSpeed(mc.cvID, desiredSpeed); err != nil {
		return fmt.Errorf("multiconflict: set speed: %w", err)
	}
	return nil
}
