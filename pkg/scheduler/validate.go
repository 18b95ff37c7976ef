package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/ja7ad/smtsched/pkg/topology"
	"github.com/ja7ad/smtsched/pkg/types"
)

// ObservedSlot is the subset of an iat.Snapshot the STP computation
// needs.
type ObservedSlot struct {
	PGID         types.PGID
	JobID        types.JobID
	Cycles       uint64
	Instructions uint64
}

// AttributionSource is the subset of *iat.Table the validation loop
// needs: resetting counters before a settling window and reading the
// resulting snapshots after it.
type AttributionSource interface {
	ResetAll()
	ActiveSnapshots() []ObservedSlot
}

// SingleIPCSource resolves a job's solo IPC baseline for STP
// normalization (spec §4.5 Step 6).
type SingleIPCSource interface {
	SingleIPC(jobID types.JobID) (float64, bool)
}

// AffinityApplier commits a logical-CPU set to a pgid and its
// descendants (spec §4.5 Step 7). An implementation may return an error
// after a partial failure (ProcAffinityApplier logs each failed pid, still
// visits the rest, and returns the first error); CommitAffinity logs that
// error and goes on with the remaining pgids.
type AffinityApplier interface {
	Apply(pgid types.PGID, cpus []int) error
}

// candidate bundles a core-packing result with the selected-pair list
// that produced it, for logging/diagnostics.
type candidate struct {
	assignment Assignment
	selected   []SelectedPair
}

// GenerateCandidates implements spec §4.5 Step 6's candidate pool: the
// best selection (Steps 3-5 run once), up to k-1 further candidates
// produced by rotating the sorted pair list before re-running Steps 3-5,
// and k random baselines shuffled from the best selection.
func GenerateCandidates(targets []Target, sortedCandidates []Candidate, scores ScoreSource, topo *topology.Topology, k int, rng *rand.Rand) []candidate {
	var out []candidate

	best := packFrom(targets, sortedCandidates, scores, topo)
	out = append(out, best)

	for r := 1; r < k && len(sortedCandidates) > 1; r++ {
		rotated := rotate(sortedCandidates, r)
		out = append(out, packFrom(targets, rotated, scores, topo))
	}

	for r := 0; r < k; r++ {
		shuffled := append([]SelectedPair(nil), best.selected...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		out = append(out, candidate{
			assignment: PackCores(topo, targets, shuffled, scores),
			selected:   shuffled,
		})
	}

	return out
}

func packFrom(targets []Target, candidates []Candidate, scores ScoreSource, topo *topology.Topology) candidate {
	selected := GreedySelect(targets, candidates)
	improved := TwoOptImprove(selected, func(i, j int) float64 {
		s, _ := scores.Score(targets[i].JobID, targets[j].JobID)
		return s
	})
	return candidate{
		assignment: PackCores(topo, targets, improved, scores),
		selected:   improved,
	}
}

func rotate(c []Candidate, by int) []Candidate {
	if len(c) == 0 {
		return c
	}
	by %= len(c)
	out := make([]Candidate, 0, len(c))
	out = append(out, c[by:]...)
	out = append(out, c[:by]...)
	return out
}

// EvaluateSTP implements spec §4.5 Step 6's System Throughput metric,
// skipping slots with zero observed cycles or a missing/zero solo
// baseline.
func EvaluateSTP(slots []ObservedSlot, singleIPC SingleIPCSource) float64 {
	var stp float64
	for _, s := range slots {
		if s.Cycles == 0 {
			continue
		}
		base, ok := singleIPC.SingleIPC(s.JobID)
		if !ok || base <= 0 {
			continue
		}
		observed := float64(s.Instructions) / float64(s.Cycles)
		stp += observed / base
	}
	return stp
}

// RunEmpiricalValidation implements spec §4.5 Step 6 end-to-end: commit
// each candidate's affinity, reset IAT counters, wait the settling
// interval, measure STP, and return the winner.
func RunEmpiricalValidation(ctx context.Context, candidates []candidate, iat AttributionSource, singleIPC SingleIPCSource, affinity AffinityApplier, settle time.Duration, sleep func(context.Context, time.Duration)) (Assignment, float64) {
	var bestAssignment Assignment
	bestSTP := -1.0

	for _, c := range candidates {
		CommitAffinity(c.assignment, affinity)
		iat.ResetAll()
		sleep(ctx, settle)

		stp := EvaluateSTP(iat.ActiveSnapshots(), singleIPC)
		if stp > bestSTP {
			bestSTP = stp
			bestAssignment = c.assignment
		}
	}
	return bestAssignment, bestSTP
}

// CommitAffinity implements spec §4.5 Step 7: apply each pgid's logical
// CPU set. A per-pgid failure is logged and the remaining pgids still
// get committed.
func CommitAffinity(assignment Assignment, affinity AffinityApplier) {
	for pgid, cpuSet := range assignment {
		cpus := make([]int, 0, len(cpuSet))
		for cpu := range cpuSet {
			cpus = append(cpus, cpu)
		}
		sort.Ints(cpus)
		if err := affinity.Apply(pgid, cpus); err != nil {
			slog.Warn("affinity commit failed", "pgid", pgid, "cpus", cpus, "err", err)
		}
	}
}
