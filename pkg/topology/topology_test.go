package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fourWaySMT2 = `processor	: 0
physical id	: 0
core id	: 0

processor	: 1
physical id	: 0
core id	: 1

processor	: 2
physical id	: 0
core id	: 0

processor	: 3
physical id	: 0
core id	: 1
`

func TestDiscoverFrom_GroupsSiblingsByCoreID(t *testing.T) {
	topo, err := discoverFrom(strings.NewReader(fourWaySMT2))
	require.NoError(t, err)

	assert.Equal(t, 4, topo.NumLogicalCPUs)
	require.Len(t, topo.Core, 2)
	assert.ElementsMatch(t, []int{0, 2}, topo.Core[0])
	assert.ElementsMatch(t, []int{1, 3}, topo.Core[1])

	sibs := topo.Siblings(0)
	assert.ElementsMatch(t, []int{0, 2}, sibs)

	c, ok := topo.CoreOf(3)
	require.True(t, ok)
	assert.Equal(t, 1, c)
}

func TestDiscoverFrom_MissingCoreIDDegradesToOnePerCore(t *testing.T) {
	const noCoresInfo = "processor\t: 0\n\nprocessor\t: 1\n"
	topo, err := discoverFrom(strings.NewReader(noCoresInfo))
	require.NoError(t, err)
	assert.Equal(t, 2, topo.NumLogicalCPUs)
	assert.Len(t, topo.Core, 2, "with no core id, each logical CPU is its own core")
}

func TestDiscoverFrom_EmptyInputFails(t *testing.T) {
	_, err := discoverFrom(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoCPUs)
}

func TestDiscoverFrom_UnknownLogicalCPUNotFound(t *testing.T) {
	topo, err := discoverFrom(strings.NewReader(fourWaySMT2))
	require.NoError(t, err)
	_, ok := topo.CoreOf(99)
	assert.False(t, ok)
	assert.Nil(t, topo.Siblings(99))
}

func TestFromOverride_BuildsSameShapeAsDiscovery(t *testing.T) {
	topo := FromOverride([][]int{{0, 4}, {1, 5}})
	assert.Equal(t, 4, topo.NumLogicalCPUs)
	c, ok := topo.CoreOf(4)
	require.True(t, ok)
	assert.Equal(t, []int{0, 4}, topo.Core[c])
	assert.ElementsMatch(t, []int{0, 4}, topo.Siblings(0))
}
