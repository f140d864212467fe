package bikesim

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictFixture is a single-edge approach: a 100 m lane with a 10 m/s
// limit, so an undisturbed conflict vehicle needs 10 s to clear it.
func conflictFixture(t *testing.T) (*fakeSumo, *ConflictVehicle) {
	t.Helper()
	api := newFakeSumo()
	api.routes["conflictRoute"] = []string{"CE"}
	api.lanes["CE_0"] = fakeLane{edge: "CE", length: 100, maxSpeed: 10}

	cv, err := NewConflictVehicle(api, ConflictConfig{
		Name:      "cv1",
		TypeID:    "passenger",
		RouteID:   "conflictRoute",
		EgoTarget: orb.Point{0, 0},
	})
	require.NoError(t, err)
	return api, cv
}

func TestConflictVehicle_DeploysWhenEgoETAWithinRange(t *testing.T) {
	api, cv := conflictFixture(t)

	// GIVEN the ego vehicle is 200 m out at 10 m/s (ETA 20 s > 10 s)
	require.NoError(t, cv.Check(orb.Point{200, 0}, 10))
	assert.False(t, cv.Deployed())
	assert.Empty(t, api.added)

	// WHEN the ego closes to 90 m (ETA 9 s <= 10 s)
	require.NoError(t, cv.Check(orb.Point{90, 0}, 10))

	// THEN the conflict vehicle is inserted at max depart speed
	require.True(t, cv.Deployed())
	require.Len(t, api.added, 1)
	assert.Equal(t, "cv1", api.added[0].id)
	assert.Equal(t, "max", api.added[0].params.DepartSpeed)
}

func TestConflictVehicle_AdjustsSpeedWhenETAsDiverge(t *testing.T) {
	api, cv := conflictFixture(t)
	require.NoError(t, cv.Check(orb.Point{90, 0}, 10)) // deploy
	api.slowDowns = nil                                // drop the command from the deploy step

	// GIVEN the conflict vehicle is crawling at the lane start
	api.vehicles["cv1"].lanePos = 0
	api.vehicles["cv1"].speed = 0

	// WHEN the ego is 50 m out at 10 m/s (ETA 5 s)
	require.NoError(t, cv.Check(orb.Point{50, 0}, 10))

	// THEN the conflict vehicle is commanded to cover its 100 m in 5 s
	require.Len(t, api.slowDowns, 1)
	assert.Equal(t, "cv1", api.slowDowns[0].id)
	assert.InDelta(t, 20.0, api.slowDowns[0].speed, 1e-9)
	assert.Equal(t, 0.0, api.slowDowns[0].duration)
}

func TestConflictVehicle_NoCommandWhenETAsAligned(t *testing.T) {
	api, cv := conflictFixture(t)
	require.NoError(t, cv.Check(orb.Point{90, 0}, 10)) // deploy
	api.slowDowns = nil

	// conflict vehicle halfway down the lane at matching pace
	api.vehicles["cv1"].lanePos = 50
	api.vehicles["cv1"].speed = 10

	require.NoError(t, cv.Check(orb.Point{50, 0}, 10)) // both ETAs 5 s
	assert.Empty(t, api.slowDowns)
}

func TestConflictVehicle_ReleasesNearTarget(t *testing.T) {
	api, cv := conflictFixture(t)
	require.NoError(t, cv.Check(orb.Point{90, 0}, 10)) // deploy
	api.slowDowns = nil
	api.vehicles["cv1"].speed = 10

	// ego inside the default 20 m release distance
	require.NoError(t, cv.Check(orb.Point{15, 0}, 10))
	assert.True(t, cv.Done())

	// released vehicles receive no further commands
	api.vehicles["cv1"].speed = 0
	require.NoError(t, cv.Check(orb.Point{10, 0}, 10))
	assert.Empty(t, api.slowDowns)
}

func TestConflictVehicle_StandingEgoDoesNotDivideByZero(t *testing.T) {
	_, cv := conflictFixture(t)
	// a standing ego vehicle has a huge ETA, so nothing deploys
	require.NoError(t, cv.Check(orb.Point{90, 0}, 0))
	assert.False(t, cv.Deployed())
}

func TestConflictVehicle_NegativeCommandSpeedClampsToZero(t *testing.T) {
	api, cv := conflictFixture(t)
	require.NoError(t, cv.Check(orb.Point{90, 0}, 10)) // deploy
	api.slowDowns = nil

	// conflict vehicle overshot the (offset) target: remaining dist < 0
	api.vehicles["cv1"].lanePos = 110
	api.vehicles["cv1"].speed = 10

	require.NoError(t, cv.Check(orb.Point{50, 0}, 10))
	require.Len(t, api.slowDowns, 1)
	assert.Equal(t, 0.0, api.slowDowns[0].speed)
}

func TestConflictVehicle_ResetRemovesAndRearms(t *testing.T) {
	api, cv := conflictFixture(t)
	require.NoError(t, cv.Check(orb.Point{90, 0}, 10)) // deploy
	require.True(t, cv.Deployed())

	require.NoError(t, cv.Reset())
	assert.False(t, cv.Deployed())
	assert.False(t, cv.Done())
	assert.Equal(t, []string{"cv1"}, api.removed)

	// re-arming a never-deployed conflict is a no-op
	require.NoError(t, cv.Reset())
	assert.Len(t, api.removed, 1)
}

func TestNewConflictVehicle_TargetOffsetExtendsLane(t *testing.T) {
	api := newFakeSumo()
	api.routes["r"] = []string{"CE"}
	api.lanes["CE_0"] = fakeLane{edge: "CE", length: 100, maxSpeed: 10}

	cv, err := NewConflictVehicle(api, ConflictConfig{
		Name: "cv2", TypeID: "passenger", RouteID: "r",
		EgoTarget: orb.Point{0, 0}, TargetOffset: 20,
	})
	require.NoError(t, err)

	// total ETA is now 12 s, so an ego ETA of 11 s deploys
	require.NoError(t, cv.Check(orb.Point{110, 0}, 10))
	assert.True(t, cv.Deployed())
}

func TestNewConflictVehicle_NoAllowedLane(t *testing.T) {
	api := newFakeSumo()
	api.routes["r"] = []string{"CE"}
	api.lanes["CE_0"] = fakeLane{edge: "CE", length: 100, maxSpeed: 10, allowed: []string{"bus"}}

	_, err := NewConflictVehicle(api, ConflictConfig{
		Name: "cv", TypeID: "passenger", RouteID: "r", EgoTarget: orb.Point{0, 0},
	})
	assert.Error(t, err)
}
