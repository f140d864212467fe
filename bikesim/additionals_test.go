package bikesim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const additionalsXML = `<?xml version="1.0" encoding="UTF-8"?>
<additional>
    <poly id="approach" type="trigger" color="red" shape="50,100 100,100 100,150 50,150"/>
    <poly id="decoration" type="building" shape="0,0 5,0 5,5 0,5"/>
    <poly id="leave" type="trigger" shape="200,100 250,100 250,150 200,150"/>
    <poi id="crossing" type="target" x="120.5" y="130.25" color="blue"/>
    <poi id="landmark" type="sign" x="1" y="2"/>
</additional>
`

func writeAdditionals(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.add.xml")
	require.NoError(t, os.WriteFile(path, []byte(additionalsXML), 0o644))
	return path
}

func TestReadTriggersFromFile_FiltersByType(t *testing.T) {
	path := writeAdditionals(t)

	triggers, err := ReadTriggersFromFile(path, "")
	require.NoError(t, err)
	require.Len(t, triggers, 2)
	assert.Equal(t, "approach", triggers[0].ID)
	assert.Equal(t, "leave", triggers[1].ID)

	// the parsed polygon actually works as a trigger
	assert.True(t, triggers[0].Contains(orb.Point{75, 125}))
	assert.False(t, triggers[0].Contains(orb.Point{0, 0}))
}

func TestReadTriggersFromFile_CustomType(t *testing.T) {
	path := writeAdditionals(t)
	triggers, err := ReadTriggersFromFile(path, "building")
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, "decoration", triggers[0].ID)
}

func TestReadTargetPointsFromFile(t *testing.T) {
	path := writeAdditionals(t)

	targets, err := ReadTargetPointsFromFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]orb.Point{"crossing": {120.5, 130.25}}, targets)
}

func TestReadAdditionals_MissingFile(t *testing.T) {
	_, err := ReadTriggersFromFile(filepath.Join(t.TempDir(), "nope.xml"), "")
	assert.Error(t, err)
}

func TestReadAdditionals_MalformedXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	require.NoError(t, os.WriteFile(path, []byte("<additional><poly"), 0o644))
	_, err := ReadTargetPointsFromFile(path, "")
	assert.Error(t, err)
}
