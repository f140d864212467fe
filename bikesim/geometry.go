package bikesim

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Station returns the arc-length position along line of the point on line
// nearest to p. With an empty line the station is 0; with a single-point
// line every projection lands on that point.
func Station(line orb.LineString, p orb.Point) float64 {
	if len(line) < 2 {
		return 0
	}
	bestStation := 0.0
	bestDist := planar.Distance(line[0], p)
	walked := 0.0
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		segLen := planar.Distance(a, b)
		t := projectParam(a, b, p)
		closest := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		d := planar.Distance(closest, p)
		if d < bestDist {
			bestDist = d
			bestStation = walked + t*segLen
		}
		walked += segLen
	}
	return bestStation
}

// projectParam returns the clamped projection parameter of p onto segment
// a-b (0 at a, 1 at b).
func projectParam(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
