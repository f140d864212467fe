package bikesim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRightmostAllowedLane_PicksLaneZero(t *testing.T) {
	api := newFakeSumo()
	api.lanes["E1_0"] = fakeLane{edge: "E1"}
	api.lanes["E1_1"] = fakeLane{edge: "E1"}
	api.lanes["E2_0"] = fakeLane{edge: "E2"}

	lane, err := RightmostAllowedLane(api, "E1", "passenger")
	require.NoError(t, err)
	assert.Equal(t, "E1_0", lane)
}

func TestRightmostAllowedLane_SkipsDisallowedLanes(t *testing.T) {
	api := newFakeSumo()
	api.lanes["E1_0"] = fakeLane{edge: "E1", allowed: []string{"bicycle"}}
	api.lanes["E1_1"] = fakeLane{edge: "E1", allowed: []string{"passenger", "truck"}}

	lane, err := RightmostAllowedLane(api, "E1", "passenger")
	require.NoError(t, err)
	assert.Equal(t, "E1_1", lane)

	// the bike lane is found for bicycles
	lane, err = RightmostAllowedLane(api, "E1", "bicycle")
	require.NoError(t, err)
	assert.Equal(t, "E1_0", lane)
}

func TestRightmostAllowedLane_NoCandidate(t *testing.T) {
	api := newFakeSumo()
	api.lanes["E1_0"] = fakeLane{edge: "E1", allowed: []string{"bus"}}

	_, err := RightmostAllowedLane(api, "E1", "passenger")
	assert.Error(t, err)

	_, err = RightmostAllowedLane(api, "E2", "passenger")
	assert.Error(t, err, "edge without lanes")
}

func TestRandomDepartPos_SingleLaneWithinBounds(t *testing.T) {
	api := newFakeSumo()
	api.lanes["L"] = fakeLane{length: 80}
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 50; i++ {
		lane, pos, err := RandomDepartPos(api, rng, "L")
		require.NoError(t, err)
		assert.Equal(t, "L", lane)
		assert.GreaterOrEqual(t, pos, 0.0)
		assert.Less(t, pos, 80.0)
	}
}

func TestRandomDepartPos_MultiLaneMapsToLocalPosition(t *testing.T) {
	api := newFakeSumo()
	api.lanes["A"] = fakeLane{length: 10}
	api.lanes["B"] = fakeLane{length: 90}
	rng := rand.New(rand.NewSource(3))

	sawB := false
	for i := 0; i < 100; i++ {
		lane, pos, err := RandomDepartPos(api, rng, "A", "B")
		require.NoError(t, err)
		switch lane {
		case "A":
			assert.Less(t, pos, 10.0)
		case "B":
			sawB = true
			assert.Less(t, pos, 90.0)
		default:
			t.Fatalf("unexpected lane %q", lane)
		}
		assert.GreaterOrEqual(t, pos, 0.0)
	}
	// with 90% of the combined length, lane B must appear
	assert.True(t, sawB)
}

func TestRandomDepartPos_Errors(t *testing.T) {
	api := newFakeSumo()
	rng := rand.New(rand.NewSource(1))

	_, _, err := RandomDepartPos(api, rng)
	assert.Error(t, err, "no lanes")

	_, _, err = RandomDepartPos(api, rng, "missing")
	assert.Error(t, err, "unknown lane")
}
