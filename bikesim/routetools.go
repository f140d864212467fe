package bikesim

import (
	"fmt"
	"math/rand"
	"slices"
)

// LaneAPI is the SUMO command surface the route helpers need.
// *traci.Client satisfies it.
type LaneAPI interface {
	LaneIDs() ([]string, error)
	LaneLength(laneID string) (float64, error)
	LaneEdgeID(laneID string) (string, error)
	LaneAllowed(laneID string) ([]string, error)
}

// RandomDepartPos returns a uniformly random departure position on the
// given lanes. With a single lane the position is drawn along it; with
// several lanes the position is drawn along their concatenated length and
// mapped back to the containing lane. Replicates the random departPos
// behavior SUMO offers for vehicles, which TraCI does not expose for
// persons.
func RandomDepartPos(api LaneAPI, rng *rand.Rand, lanes ...string) (string, float64, error) {
	if len(lanes) == 0 {
		return "", 0, fmt.Errorf("no lanes given")
	}
	lengths := make([]float64, len(lanes))
	total := 0.0
	for i, lane := range lanes {
		length, err := api.LaneLength(lane)
		if err != nil {
			return "", 0, fmt.Errorf("lane %s: %w", lane, err)
		}
		lengths[i] = length
		total += length
	}
	pos := rng.Float64() * total
	walked := 0.0
	for i, lane := range lanes {
		if pos < walked+lengths[i] {
			return lane, pos - walked, nil
		}
		walked += lengths[i]
	}
	// pos == total edge case lands at the end of the last lane
	last := len(lanes) - 1
	return lanes[last], lengths[last], nil
}

// RightmostAllowedLane returns the id of the rightmost lane on edge that
// allows vClass. An empty allow-list means every class is allowed.
//
// Relies on SUMO's default lane naming (edge_index) where index 0 is the
// rightmost lane, so renamed lanes break the ordering.
func RightmostAllowedLane(api LaneAPI, edge, vClass string) (string, error) {
	lanes, err := api.LaneIDs()
	if err != nil {
		return "", fmt.Errorf("list lanes: %w", err)
	}
	var candidates []string
	for _, lane := range lanes {
		laneEdge, err := api.LaneEdgeID(lane)
		if err != nil {
			return "", fmt.Errorf("lane %s: %w", lane, err)
		}
		if laneEdge != edge {
			continue
		}
		allowed, err := api.LaneAllowed(lane)
		if err != nil {
			return "", fmt.Errorf("lane %s: %w", lane, err)
		}
		if len(allowed) == 0 || slices.Contains(allowed, vClass) {
			candidates = append(candidates, lane)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no lane on edge %s allows class %s", edge, vClass)
	}
	slices.Sort(candidates)
	return candidates[0], nil
}
