package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/smtsched/pkg/types"
)

type fakeScores map[[2]types.JobID]float64

func (f fakeScores) Score(a, b types.JobID) (float64, bool) {
	if v, ok := f[[2]types.JobID{a, b}]; ok {
		return v, true
	}
	if v, ok := f[[2]types.JobID{b, a}]; ok {
		return v, true
	}
	return 0, false
}

func TestEnumeratePairs_ExcludesSelfPairsBelowTwoWorkers(t *testing.T) {
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 1},
		{PGID: 2, JobID: 11, WorkerNum: 2},
	}
	scores := fakeScores{
		{10, 10}: 0.5,
		{11, 11}: 0.9,
		{10, 11}: 0.3,
	}
	candidates := EnumeratePairs(targets, scores)

	var sawSelf10 bool
	for _, c := range candidates {
		if c.I == 0 && c.J == 0 {
			sawSelf10 = true
		}
	}
	assert.False(t, sawSelf10, "target with WorkerNum<2 must not self-pair")
	require.NotEmpty(t, candidates)
	assert.Equal(t, 0.9, candidates[0].Score, "sorted descending by score")
}

func TestEnumeratePairs_SkipsUnscoredPairs(t *testing.T) {
	targets := []Target{
		{PGID: 1, JobID: 10, WorkerNum: 2},
		{PGID: 2, JobID: 11, WorkerNum: 2},
	}
	scores := fakeScores{{10, 10}: 0.4}
	candidates := EnumeratePairs(targets, scores)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0, candidates[0].I)
	assert.Equal(t, 0, candidates[0].J)
}
