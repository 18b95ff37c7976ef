package scheduler

import (
	"sort"

	"github.com/ja7ad/smtsched/pkg/types"
)

func sortSelectedDescending(s []SelectedPair) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
}

// SelectedPair is one emitted pair instance: two target indices (equal
// for a self-pair instance) consuming one worker slot from each side.
type SelectedPair struct {
	I, J  int
	Score float64
}

// GreedySelect implements spec §4.5 Step 3: walk candidates in score
// order, realize as many instances of each pair as the per-job and
// per-pgid worker budgets allow, stopping once n/2 pair instances have
// been emitted.
func GreedySelect(targets []Target, candidates []Candidate) []SelectedPair {
	counter := make(map[types.JobID]int32, len(targets))
	pgidRemaining := make(map[types.PGID]int32, len(targets))
	for _, t := range targets {
		counter[t.JobID] += t.WorkerNum
		pgidRemaining[t.PGID] = t.WorkerNum
	}

	target := TotalWorkers(targets) / 2
	var selected []SelectedPair

	for _, c := range candidates {
		if int32(len(selected)) >= target {
			break
		}
		a, b := targets[c.I], targets[c.J]

		var k int32
		if c.I == c.J {
			k = min32(counter[a.JobID]/2, pgidRemaining[a.PGID]/2)
			counter[a.JobID] -= 2 * k
			pgidRemaining[a.PGID] -= 2 * k
		} else {
			k = min32(counter[a.JobID], counter[b.JobID], pgidRemaining[a.PGID], pgidRemaining[b.PGID])
			counter[a.JobID] -= k
			counter[b.JobID] -= k
			pgidRemaining[a.PGID] -= k
			pgidRemaining[b.PGID] -= k
		}

		remaining := target - int32(len(selected))
		if k > remaining {
			k = remaining
		}
		for n := int32(0); n < k; n++ {
			selected = append(selected, SelectedPair{I: c.I, J: c.J, Score: c.Score})
		}
	}
	return selected
}

func min32(vs ...int32) int32 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
