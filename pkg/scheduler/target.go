// Package scheduler implements the Pair Scheduler (PS, spec §4.5):
// target discovery, pair enumeration and greedy selection under
// worker-count budgets, 2-opt local search, core packing via a
// min-priority queue, empirical A/B validation, and affinity
// commitment.
package scheduler

import "github.com/ja7ad/smtsched/pkg/types"

// Target is one live process group discovered from the attribution
// table's active mask, or the sentinel padding entry.
type Target struct {
	PGID      types.PGID
	JobID     types.JobID
	WorkerNum int32
}

// Snapshot is the subset of an iat.Snapshot target discovery needs,
// expressed independently so target discovery doesn't depend on iat
// (only iatadapter.go imports it).
type Snapshot struct {
	PGID      types.PGID
	JobID     types.JobID
	WorkerNum int32
}

// DiscoverTargets implements spec §4.5 Step 1: read every active slot's
// identity, compute the live-thread count, and pad it out to a multiple
// of numLogicalCPUs with a sentinel entry so sibling-pair accounting
// always divides evenly.
func DiscoverTargets(snapshots []Snapshot, numLogicalCPUs int) []Target {
	targets := make([]Target, 0, len(snapshots)+1)
	var n int32
	for _, s := range snapshots {
		targets = append(targets, Target{PGID: s.PGID, JobID: s.JobID, WorkerNum: s.WorkerNum})
		n += s.WorkerNum
	}

	L := int32(numLogicalCPUs)
	if L <= 0 {
		return targets
	}
	remain := (L - (n % L)) % L
	targets = append(targets, Target{PGID: types.SentinelPGID, JobID: types.Sentinel, WorkerNum: remain})
	return targets
}

// TotalWorkers sums WorkerNum across targets, the rounded n+remain of
// spec §4.5 Step 1.
func TotalWorkers(targets []Target) int32 {
	var n int32
	for _, t := range targets {
		n += t.WorkerNum
	}
	return n
}
