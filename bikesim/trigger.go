package bikesim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// TriggerEvent describes the state change a Trigger observed between two
// consecutive checks.
type TriggerEvent int

const (
	// NoChange means the point stayed on the same side of the polygon.
	NoChange TriggerEvent = iota
	// Entry means the point moved into the polygon since the last check.
	Entry
	// Exit means the point moved out of the polygon since the last check.
	Exit
)

func (e TriggerEvent) String() string {
	switch e {
	case Entry:
		return "ENTRY"
	case Exit:
		return "EXIT"
	default:
		return "NO_CHANGE"
	}
}

// Trigger is a polygon area that reports entry and exit of a tracked point.
// The ego vehicle in the bike simulator is invisible to SUMO detectors, so
// polygons drawn in the network serve as detectors instead.
type Trigger struct {
	ID    string
	shape orb.Polygon
	state bool
}

// NewTrigger creates a Trigger from a polygon ring. The ring needs at least
// three points and is closed implicitly.
func NewTrigger(id string, points []orb.Point) (*Trigger, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("trigger %q: polygon needs at least 3 points, got %d", id, len(points))
	}
	ring := make(orb.Ring, 0, len(points)+1)
	ring = append(ring, points...)
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return &Trigger{ID: id, shape: orb.Polygon{ring}}, nil
}

// NewTriggerFromShape creates a Trigger from a SUMO shape string of the form
// "x1,y1 x2,y2 ...".
func NewTriggerFromShape(id, shape string) (*Trigger, error) {
	points, err := ParseShape(shape)
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", id, err)
	}
	return NewTrigger(id, points)
}

// ParseShape parses a SUMO shape attribute ("x1,y1 x2,y2 ...") into points.
func ParseShape(shape string) ([]orb.Point, error) {
	var points []orb.Point
	for _, pair := range strings.Fields(shape) {
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("malformed shape point %q", pair)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed shape point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed shape point %q: %w", pair, err)
		}
		points = append(points, orb.Point{x, y})
	}
	return points, nil
}

// Contains reports whether the point lies inside the trigger polygon.
func (t *Trigger) Contains(point orb.Point) bool {
	return planar.PolygonContains(t.shape, point)
}

// Check evaluates whether the trigger area was entered or exited since the
// last call. State is strictly last-call relative: two consecutive checks
// from the same side report NoChange.
func (t *Trigger) Check(point orb.Point) TriggerEvent {
	oldState := t.state
	t.state = t.Contains(point)
	if t.state == oldState {
		return NoChange
	}
	if t.state {
		return Entry
	}
	return Exit
}

// CheckEntry reports whether the trigger area was entered since the last
// check.
func (t *Trigger) CheckEntry(point orb.Point) bool {
	return t.Check(point) == Entry
}

// CheckExit reports whether the trigger area was exited since the last
// check.
func (t *Trigger) CheckExit(point orb.Point) bool {
	return t.Check(point) == Exit
}

// CheckTriggers checks every trigger against the point and returns a map of
// trigger IDs to the observed events.
func CheckTriggers(triggers []*Trigger, point orb.Point) map[string]TriggerEvent {
	states := make(map[string]TriggerEvent, len(triggers))
	for _, t := range triggers {
		states[t.ID] = t.Check(point)
	}
	return states
}
