package iat

import (
	"sync/atomic"

	"github.com/ja7ad/smtsched/pkg/types"
)

// SnapshotSlot is the user-visible mirror of one Attribution Slot (spec §3,
// §6). Fields are exported as atomics so a single writer (the table) and an
// arbitrary number of readers can share the struct without a mutex: the
// writer bumps Seq to odd, stores the fields, then bumps Seq back to even
// (the seqlock protocol of invariant I-3). The struct is 32 bytes wide, a
// multiple of the 16-byte alignment §6 calls for.
type SnapshotSlot struct {
	Seq          atomic.Uint32
	PGID         atomic.Int32
	JobID        atomic.Int32
	WorkerNum    atomic.Int32
	Cycles       atomic.Uint64
	Instructions atomic.Uint64
}

// Snapshot is a read-side copy of one SnapshotSlot taken under the seqlock
// protocol.
type Snapshot struct {
	PGID         types.PGID
	JobID        types.JobID
	WorkerNum    int32
	Cycles       uint64
	Instructions uint64
}

// publish writes a new version of the slot's identity and accumulators.
// Callers must already hold the owning Attribution Slot's mutex so that at
// most one writer touches a given SnapshotSlot at a time.
func publish(s *SnapshotSlot, pgid types.PGID, jobID types.JobID, workerNum int32, cycles, instructions uint64) {
	seq := s.Seq.Load()
	s.Seq.Store(seq + 1) // odd: writer in progress
	s.PGID.Store(int32(pgid))
	s.JobID.Store(int32(jobID))
	s.WorkerNum.Store(workerNum)
	s.Cycles.Store(cycles)
	s.Instructions.Store(instructions)
	s.Seq.Store(seq + 2) // even: stable again
}

// read performs a seqlock read, retrying until it observes a stable,
// matching even sequence number (invariant I-3). It never blocks on a
// mutex: readers only spin against the writer's two atomic stores of Seq.
func read(s *SnapshotSlot) Snapshot {
	for {
		s1 := s.Seq.Load()
		if s1%2 != 0 {
			continue
		}
		snap := Snapshot{
			PGID:         types.PGID(s.PGID.Load()),
			JobID:        types.JobID(s.JobID.Load()),
			WorkerNum:    s.WorkerNum.Load(),
			Cycles:       s.Cycles.Load(),
			Instructions: s.Instructions.Load(),
		}
		s2 := s.Seq.Load()
		if s1 == s2 {
			return snap
		}
	}
}

// activeMask is the bitmap over MaxSlots described in spec §3: bit i set
// iff slot i currently has published identity worth showing to readers.
// It is decoupled from the slot's own mutex-guarded state so that
// iteration never contends with the switch path.
type activeMask struct {
	words [(types.MaxSlots + 63) / 64]atomic.Uint64
}

func (m *activeMask) set(idx int) {
	w, b := idx/64, uint(idx%64)
	for {
		old := m.words[w].Load()
		next := old | (1 << b)
		if m.words[w].CompareAndSwap(old, next) {
			return
		}
	}
}

func (m *activeMask) clear(idx int) {
	w, b := idx/64, uint(idx%64)
	for {
		old := m.words[w].Load()
		next := old &^ (1 << b)
		if m.words[w].CompareAndSwap(old, next) {
			return
		}
	}
}

// each calls fn for every index currently marked active, stopping early if
// fn returns false. fn may observe a slot that is concurrently being
// cleared; callers tolerate that via the seqlock read (an emptied slot
// simply reads back zero/sentinel identity).
func (m *activeMask) each(fn func(idx int) bool) {
	for w := range m.words {
		bits := m.words[w].Load()
		for bits != 0 {
			b := trailingZeros64(bits)
			if !fn(w*64 + b) {
				return
			}
			bits &^= 1 << uint(b)
		}
	}
}

func trailingZeros64(x uint64) int {
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}

// Region is the shared snapshot region of spec §6:
// `{ atomic count; bitmap active_mask[...]; snapshot_slot[MAX_SLOTS] }`.
type Region struct {
	count  atomic.Int64
	active activeMask
	Slots  [types.MaxSlots]SnapshotSlot
}

// NewRegion allocates an in-process Region. For an external reader (a
// separate process mapping the same memory) the region can instead be
// carved out of an mmap'd file with MapRegionFile; the in-process form is
// what the daemon itself and its tests use.
func NewRegion() *Region { return &Region{} }

// Count returns the number of currently active slots.
func (r *Region) Count() int64 { return r.count.Load() }
