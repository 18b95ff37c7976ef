package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreedySelect_RealizesSelfPairUsingHalfWorkers(t *testing.T) {
	targets := []Target{{PGID: 1, JobID: 10, WorkerNum: 4}}
	candidates := []Candidate{{I: 0, J: 0, Score: 0.8}}
	selected := GreedySelect(targets, candidates)
	require.Len(t, selected, 2)
	for _, s := range selected {
		assert.Equal(t, 0, s.I)
		assert.Equal(t, 0, s.J)
	}
}

func TestGreedySelect_MixedPairConsumesFromBothSides(t *testing.T) {
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 2},
		{PGID: 2, JobID: 11, WorkerNum: 2},
	}
	candidates := []Candidate{{I: 0, J: 1, Score: 0.7}}
	selected := GreedySelect(targets, candidates)
	assert.Len(t, selected, 2)
}

func TestGreedySelect_StopsAtHalfTotalWorkers(t *testing.T) {
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 4},
		{PGID: 2, JobID: 11, WorkerNum: 4},
	}
	candidates := []Candidate{
		{I: 0, J: 0, Score: 0.9},
		{I: 1, J: 1, Score: 0.9},
	}
	selected := GreedySelect(targets, candidates)
	assert.Len(t, selected, 4) // n=8, target = n/2 = 4
}
