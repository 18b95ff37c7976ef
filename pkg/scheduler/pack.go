package scheduler

import (
	"container/heap"

	"github.com/ja7ad/smtsched/pkg/topology"
	"github.com/ja7ad/smtsched/pkg/types"
)

// runqueueCap bounds evaluate_runqueue's scan (spec §4.5 Step 5: "capped
// at 5 members").
const runqueueCap = 5

type threadState struct {
	logicalCPU int
	runqueue   []types.JobID
}

type coreState struct {
	threads     [2]*threadState
	threadCount int
	totalScore  float64
}

// coreHeap is a min-heap ordered by (thread_count, total_score)
// ascending (spec §4.5 Step 5).
type coreHeap []*coreState

func (h coreHeap) Len() int { return len(h) }
func (h coreHeap) Less(i, j int) bool {
	if h[i].threadCount != h[j].threadCount {
		return h[i].threadCount < h[j].threadCount
	}
	return h[i].totalScore < h[j].totalScore
}
func (h coreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *coreHeap) Push(x any)        { *h = append(*h, x.(*coreState)) }
func (h *coreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Assignment is the outcome of core packing: for every non-sentinel
// pgid, the set of logical CPU ids its workers were packed onto.
type Assignment map[types.PGID]map[int]bool

func evaluateRunqueue(rq []types.JobID, job types.JobID, scores ScoreSource) float64 {
	n := len(rq)
	if n > runqueueCap {
		n = runqueueCap
	}
	var sum float64
	for _, member := range rq[:n] {
		if s, ok := scores.Score(job, member); ok {
			sum += s
		}
	}
	return sum
}

// PackCores implements spec §4.5 Step 5: pop the least-loaded physical
// core for each selected pair (in the order given, expected to already
// be score-descending), choose the sibling-thread assignment that
// maximizes the sum of evaluate_runqueue scores, and push the core back
// with its updated load.
func PackCores(topo *topology.Topology, targets []Target, selected []SelectedPair, scores ScoreSource) Assignment {
	assignment := make(Assignment)

	h := make(coreHeap, 0, len(topo.Core))
	for _, ids := range topo.Core {
		cs := &coreState{}
		for i := 0; i < 2 && i < len(ids); i++ {
			cs.threads[i] = &threadState{logicalCPU: ids[i]}
		}
		h = append(h, cs)
	}
	heap.Init(&h)
	if len(h) == 0 {
		return assignment
	}

	assign := func(t *threadState, elem Target) {
		t.runqueue = append(t.runqueue, elem.JobID)
		if elem.PGID == types.SentinelPGID {
			return
		}
		set, ok := assignment[elem.PGID]
		if !ok {
			set = make(map[int]bool)
			assignment[elem.PGID] = set
		}
		set[t.logicalCPU] = true
	}

	for _, pair := range selected {
		core := heap.Pop(&h).(*coreState)
		t0, t1 := core.threads[0], core.threads[1]
		if t0 == nil || t1 == nil {
			// a core with fewer than 2 siblings can't host a pair; push it
			// back unchanged so the heap invariant holds for later pops.
			heap.Push(&h, core)
			continue
		}

		elemA, elemB := targets[pair.I], targets[pair.J]

		direct := evaluateRunqueue(t0.runqueue, elemA.JobID, scores) + evaluateRunqueue(t1.runqueue, elemB.JobID, scores)
		crossed := evaluateRunqueue(t0.runqueue, elemB.JobID, scores) + evaluateRunqueue(t1.runqueue, elemA.JobID, scores)

		if crossed > direct {
			assign(t0, elemB)
			assign(t1, elemA)
		} else {
			assign(t0, elemA)
			assign(t1, elemB)
		}

		core.threadCount++
		core.totalScore += pair.Score
		heap.Push(&h, core)
	}

	return assignment
}
