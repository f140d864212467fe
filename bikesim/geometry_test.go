package bikesim

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestStation_OnStraightLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {100, 0}}

	assert.Equal(t, 0.0, Station(line, orb.Point{0, 0}))
	assert.Equal(t, 50.0, Station(line, orb.Point{50, 0}))
	assert.Equal(t, 100.0, Station(line, orb.Point{100, 0}))
}

func TestStation_ProjectsOffLinePoints(t *testing.T) {
	line := orb.LineString{{0, 0}, {100, 0}}

	// a point beside the line projects perpendicular onto it
	assert.Equal(t, 30.0, Station(line, orb.Point{30, 12}))
	// beyond the ends it clamps to the endpoints
	assert.Equal(t, 0.0, Station(line, orb.Point{-20, 5}))
	assert.Equal(t, 100.0, Station(line, orb.Point{140, -3}))
}

func TestStation_MultiSegment(t *testing.T) {
	// an L-shaped polyline: 100 m east, then north
	line := orb.LineString{{0, 0}, {100, 0}, {100, 100}}

	assert.Equal(t, 100.0, Station(line, orb.Point{100, 0}))
	assert.Equal(t, 140.0, Station(line, orb.Point{100, 40}))
	// a point near the second segment maps past the corner
	assert.Equal(t, 175.0, Station(line, orb.Point{90, 75}))
}

func TestStation_DegenerateLines(t *testing.T) {
	assert.Equal(t, 0.0, Station(orb.LineString{}, orb.Point{1, 1}))
	assert.Equal(t, 0.0, Station(orb.LineString{{5, 5}}, orb.Point{1, 1}))
	// zero-length segment does not divide by zero
	line := orb.LineString{{0, 0}, {0, 0}, {10, 0}}
	assert.Equal(t, 4.0, Station(line, orb.Point{4, 0}))
}
