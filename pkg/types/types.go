// Package types holds the data model shared by the attribution table, the
// watchdog, the score engine, and the pair scheduler.
package types

import "fmt"

// PGID identifies a process group, the unit of scheduling and profiling.
type PGID int32

// JobID is the stable application identity used as the profile lookup key.
// A job may have several live process groups of different sizes.
type JobID int32

// Sentinel is the placeholder job/process-group used to pad the live-thread
// count up to a multiple of the logical-CPU count (spec §4.5 Step 1).
const Sentinel JobID = -1

// SentinelPGID is the placeholder pgid paired with Sentinel.
const SentinelPGID PGID = -1

// MaxSlots bounds the attribution table (spec §3).
const MaxSlots = 4096

// PGD is the Process Group Descriptor.
type PGD struct {
	PGID       PGID
	JobID      JobID
	WorkerNum  int32
}

func (p PGD) String() string {
	return fmt.Sprintf("pgd{pgid=%d job=%d workers=%d}", p.PGID, p.JobID, p.WorkerNum)
}

// IsSentinel reports whether p represents padding rather than a real PG.
func (p PGD) IsSentinel() bool { return p.PGID == SentinelPGID }

// ResourceType selects the activation function used by the score engine
// (spec §4.4).
type ResourceType int

const (
	// Sequential resources are queues: issue queues, uop cache.
	Sequential ResourceType = iota
	// Parallel resources are caches and TLBs.
	Parallel
	// Port resources are execution ports; activation falls back to
	// Sequential's formula (spec §4.4).
	Port
)

func (t ResourceType) String() string {
	switch t {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	case Port:
		return "port"
	default:
		return "unknown"
	}
}

// Resource describes one entry of the fixed catalog loaded at start-up.
// Catalog order is load-time fixed and indexes every per-resource vector
// in a WCV.
type Resource struct {
	Name string
	Type ResourceType
}

// WCV is the Workload Characteristic Vector for one job_id (spec §3).
// Per-resource slices are indexed in catalog order.
type WCV struct {
	JobID         JobID
	Sensitivity   []float64
	Intensity     []float64
	Usage         []float64
	BaseSlowdown  []float64
	SingleIPC     float64
	ScaleFactor   float64
}

// HasSingleIPC reports whether this WCV can contribute to System Throughput
// normalization (spec §4.4 edge case).
func (w WCV) HasSingleIPC() bool { return w.SingleIPC > 0 }

// PairKey is the unordered key into the Score Map (spec §3, invariant I-4).
// A and B are always stored with A <= B so equal (job,job) pairs collide
// into one key regardless of argument order.
type PairKey struct {
	A, B JobID
}

// NewPairKey builds the canonical unordered key for a and b.
func NewPairKey(a, b JobID) PairKey {
	if a <= b {
		return PairKey{A: a, B: b}
	}
	return PairKey{A: b, B: a}
}
