package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/smtsched/pkg/topology"
	"github.com/ja7ad/smtsched/pkg/types"
)

func TestPackCores_AssignsBothSidesOfAPairToSiblingThreads(t *testing.T) {
	topo := &topology.Topology{Core: [][]int{{0, 1}, {2, 3}}, NumLogicalCPUs: 4}
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 2},
		{PGID: 2, JobID: 11, WorkerNum: 2},
	}
	selected := []SelectedPair{{I: 0, J: 1, Score: 0.5}}
	scores := fakeScores{{10, 11}: 0.5}

	assignment := PackCores(topo, targets, selected, scores)
	require.Contains(t, assignment, types.PGID(1))
	require.Contains(t, assignment, types.PGID(2))
	assert.Len(t, assignment[1], 1)
	assert.Len(t, assignment[2], 1)
}

func TestPackCores_SkipsSentinelFromAssignment(t *testing.T) {
	topo := &topology.Topology{Core: [][]int{{0, 1}}, NumLogicalCPUs: 2}
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 1},
		{PGID: types.SentinelPGID, JobID: types.Sentinel, WorkerNum: 1},
	}
	selected := []SelectedPair{{I: 0, J: 1, Score: 0}}
	scores := fakeScores{}

	assignment := PackCores(topo, targets, selected, scores)
	assert.NotContains(t, assignment, types.SentinelPGID)
	assert.Contains(t, assignment, types.PGID(1))
}

func TestPackCores_SkipsCoreWithoutTwoSiblings(t *testing.T) {
	topo := &topology.Topology{Core: [][]int{{0}}, NumLogicalCPUs: 1}
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 1},
		{PGID: 2, JobID: 11, WorkerNum: 1},
	}
	selected := []SelectedPair{{I: 0, J: 1, Score: 0.5}}
	scores := fakeScores{}

	assignment := PackCores(topo, targets, selected, scores)
	assert.Empty(t, assignment)
}

func TestPackCores_PrefersHigherScoringSiblingAssignment(t *testing.T) {
	topo := &topology.Topology{Core: [][]int{{0, 1}}, NumLogicalCPUs: 2}
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 1},
		{PGID: 2, JobID: 11, WorkerNum: 1},
		{PGID: 3, JobID: 12, WorkerNum: 1},
		{PGID: 4, JobID: 13, WorkerNum: 1},
	}
	// The first pair seeds the runqueues directly (job 10 on cpu 0, job 11
	// on cpu 1). For the second pair the crossed placement scores
	// 0.8+0.8 against those runqueues versus 0.1+0.1 direct, so job 13
	// (pgid 4) must join cpu 0 and job 12 (pgid 3) must join cpu 1.
	selected := []SelectedPair{{I: 0, J: 1, Score: 0.9}, {I: 2, J: 3, Score: 0.5}}
	scores := fakeScores{{10, 13}: 0.8, {11, 12}: 0.8, {10, 12}: 0.1, {11, 13}: 0.1}
	assignment := PackCores(topo, targets, selected, scores)
	assert.Len(t, assignment, 4)
	assert.Equal(t, map[int]bool{0: true}, assignment[4])
	assert.Equal(t, map[int]bool{1: true}, assignment[3])
}
