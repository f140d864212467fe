package bikesim

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"

	"github.com/patmalcolm91/bikesimtools/bikesim/traci"
)

// minSpeed substitutes for a standing vehicle in ETA divisions.
const minSpeed = 0.0001

// etaTolerance is the ETA divergence (seconds) beyond which a deployed
// conflict vehicle's speed is re-commanded.
const etaTolerance = 0.25

// ConflictAPI is the SUMO command surface a ConflictVehicle needs.
// *traci.Client satisfies it.
type ConflictAPI interface {
	LaneAPI
	RouteEdges(routeID string) ([]string, error)
	LaneMaxSpeed(laneID string) (float64, error)
	AddVehicle(vehID, routeID string, params traci.VehicleParams) error
	RemoveVehicle(vehID string, reason byte) error
	VehicleSpeed(vehID string) (float64, error)
	VehicleLanePosition(vehID string) (float64, error)
	SlowDownVehicle(vehID string, speed, duration float64) error
}

// ConflictConfig configures a ConflictVehicle.
type ConflictConfig struct {
	Name         string    // id of the vehicle to insert
	TypeID       string    // vehicle type of the inserted vehicle
	RouteID      string    // route the inserted vehicle follows
	EgoTarget    orb.Point // ego-vehicle target point
	TargetOffset float64   // offset (m) applied to the end-of-first-lane target
	ReleasePoint float64   // ego distance (m) to target below which the vehicle is released (default 20)
}

// ConflictVehicle inserts a single vehicle timed to meet the ego vehicle at
// an intersection. The vehicle is sent so that it reaches the end of the
// first lane of its route (plus the configured offset) when the ego vehicle
// is projected to reach the target point, and its speed is servo-adjusted
// until the ego vehicle passes the release point.
type ConflictVehicle struct {
	Name string

	api          ConflictAPI
	typeID       string
	routeID      string
	egoTarget    orb.Point
	releasePoint float64

	conflictLane       string
	conflictLaneLength float64 // includes the configured target offset
	conflictLaneSpeed  float64

	deployed bool
	done     bool
}

// NewConflictVehicle resolves the conflict lane (the rightmost lane of the
// route's first edge that allows the vehicle's class) and returns the
// armed conflict vehicle.
func NewConflictVehicle(api ConflictAPI, cfg ConflictConfig) (*ConflictVehicle, error) {
	if cfg.Name == "" || cfg.RouteID == "" {
		return nil, fmt.Errorf("conflict vehicle needs a name and a route id")
	}
	edges, err := api.RouteEdges(cfg.RouteID)
	if err != nil {
		return nil, fmt.Errorf("conflict %s: route edges: %w", cfg.Name, err)
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("conflict %s: route %s has no edges", cfg.Name, cfg.RouteID)
	}
	lane, err := RightmostAllowedLane(api, edges[0], cfg.TypeID)
	if err != nil {
		return nil, fmt.Errorf("conflict %s: %w", cfg.Name, err)
	}
	length, err := api.LaneLength(lane)
	if err != nil {
		return nil, fmt.Errorf("conflict %s: lane length: %w", cfg.Name, err)
	}
	speed, err := api.LaneMaxSpeed(lane)
	if err != nil {
		return nil, fmt.Errorf("conflict %s: lane speed: %w", cfg.Name, err)
	}
	releasePoint := cfg.ReleasePoint
	if releasePoint == 0 {
		releasePoint = 20
	}
	return &ConflictVehicle{
		Name:               cfg.Name,
		api:                api,
		typeID:             cfg.TypeID,
		routeID:            cfg.RouteID,
		egoTarget:          cfg.EgoTarget,
		releasePoint:       releasePoint,
		conflictLane:       lane,
		conflictLaneLength: length + cfg.TargetOffset,
		conflictLaneSpeed:  speed,
	}, nil
}

// Deployed reports whether the vehicle has been inserted.
func (cv *ConflictVehicle) Deployed() bool {
	return cv.deployed
}

// Done reports whether the ego vehicle has passed the release point and the
// conflict vehicle is no longer controlled.
func (cv *ConflictVehicle) Done() bool {
	return cv.done
}

// Check projects the ego vehicle's ETA to the target point, deploys the
// conflict vehicle once the ETAs align, and servo-adjusts its speed until
// the ego vehicle passes the release point. Call every simulation step.
func (cv *ConflictVehicle) Check(egoPos orb.Point, egoSpeed float64) error {
	if egoSpeed < minSpeed {
		egoSpeed = minSpeed
	}
	egoDist := planar.Distance(cv.egoTarget, egoPos)
	egoETA := egoDist / egoSpeed
	conflictETATotal := cv.conflictLaneLength / cv.conflictLaneSpeed

	if !cv.deployed && egoETA <= conflictETATotal {
		err := cv.api.AddVehicle(cv.Name, cv.routeID, traci.VehicleParams{
			TypeID:      cv.typeID,
			DepartSpeed: "max",
		})
		if err != nil {
			return fmt.Errorf("conflict %s: deploy: %w", cv.Name, err)
		}
		logrus.Infof("conflict %s: deployed (ego ETA %.2fs)", cv.Name, egoETA)
		cv.deployed = true
	}

	if cv.deployed && egoDist < cv.releasePoint {
		if !cv.done {
			logrus.Infof("conflict %s: released (ego %.1fm from target)", cv.Name, egoDist)
		}
		cv.done = true
	}

	if !cv.deployed || cv.done {
		return nil
	}

	lanePos, err := cv.api.VehicleLanePosition(cv.Name)
	if err != nil {
		return fmt.Errorf("conflict %s: lane position: %w", cv.Name, err)
	}
	conflictDist := cv.conflictLaneLength - lanePos
	conflictSpeed, err := cv.api.VehicleSpeed(cv.Name)
	if err != nil {
		return fmt.Errorf("conflict %s: speed: %w", cv.Name, err)
	}
	if conflictSpeed < minSpeed {
		conflictSpeed = minSpeed
	}
	conflictETA := conflictDist / conflictSpeed
	if diff := conflictETA - egoETA; diff > etaTolerance || diff < -etaTolerance {
		newSpeed := conflictDist / egoETA
		if newSpeed < 0 {
			logrus.Warnf("conflict %s: negative speed calculated, setting to zero", cv.Name)
			newSpeed = 0
		}
		if err := cv.api.SlowDownVehicle(cv.Name, newSpeed, 0); err != nil {
			return fmt.Errorf("conflict %s: adjust speed: %w", cv.Name, err)
		}
	}
	return nil
}

// Reset removes the vehicle from the simulation and re-arms the conflict
// for another deployment.
func (cv *ConflictVehicle) Reset() error {
	if cv.deployed {
		if err := cv.api.RemoveVehicle(cv.Name, traci.RemoveVaporized); err != nil {
			return fmt.Errorf("conflict %s: remove: %w", cv.Name, err)
		}
	}
	cv.deployed = false
	cv.done = false
	return nil
}
