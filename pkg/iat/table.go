// Package iat implements the IPC Attribution Table: per-process-group
// cycle/instruction accumulators updated on context switches, mirrored into
// a lock-free snapshot region for user-space readers (spec §4.1).
package iat

import (
	"iter"
	"sync"

	"github.com/ja7ad/smtsched/pkg/types"
)

// attrSlot is one Attribution Slot (spec §3): lifecycle metadata, identity,
// and accumulators, guarded by its own mutex. gen increases strictly on
// every (re)use (invariant I-2); readers on the switch path cache gen at
// registration and discard updates whose gen no longer matches.
type attrSlot struct {
	mu             sync.Mutex
	gen            uint64
	pgid           types.PGID
	jobID          types.JobID
	workerNum      int32
	cycles         uint64
	instructions   uint64
	resetRequested bool
}

// cpuState is the per-logical-CPU scratch the context-switch algorithm
// needs: which slot (if any) is currently running on this CPU, the gen it
// was registered under, and the counter values observed at switch-in.
type cpuState struct {
	slotIdx           int // -1 when nothing monitored is running
	gen               uint64
	startCycles       uint64
	startInstructions uint64
}

// Table is the IPC Attribution Table. Its zero value is not usable; build
// one with NewTable.
type Table struct {
	slots  [types.MaxSlots]attrSlot
	region *Region

	lookupMu sync.RWMutex
	lookup   map[types.PGID]int

	freeMu sync.Mutex
	free   []int // LIFO free list, improves locality per spec §5

	perCPU []cpuState
}

// NewTable builds an empty Table sized for numLogicalCPUs switch-path
// callers. numLogicalCPUs must be >= 1.
func NewTable(numLogicalCPUs int) *Table {
	t := &Table{
		region: NewRegion(),
		lookup: make(map[types.PGID]int, types.MaxSlots),
		free:   make([]int, types.MaxSlots),
		perCPU: make([]cpuState, numLogicalCPUs),
	}
	for i := 0; i < types.MaxSlots; i++ {
		// Reverse order so the free list pops index 0 first, keeping
		// slot reuse deterministic and test-friendly.
		t.free[i] = types.MaxSlots - 1 - i
	}
	for i := range t.perCPU {
		t.perCPU[i].slotIdx = -1
	}
	return t
}

// Region exposes the shared snapshot region for external mirroring (e.g.
// MapRegionFile) or diagnostics.
func (t *Table) Region() *Region { return t.region }

func (t *Table) allocSlot() (int, bool) {
	t.freeMu.Lock()
	defer t.freeMu.Unlock()
	n := len(t.free)
	if n == 0 {
		return 0, false
	}
	idx := t.free[n-1]
	t.free = t.free[:n-1]
	return idx, true
}

func (t *Table) freeSlot(idx int) {
	t.freeMu.Lock()
	t.free = append(t.free, idx)
	t.freeMu.Unlock()
}

// Add registers pgid for attribution (spec §4.1). Returns ErrNoCapacity if
// the table is full, ErrDuplicate if pgid is already active (in which case
// the freshly allocated slot is released again before returning).
func (t *Table) Add(pgid types.PGID, jobID types.JobID, workerNum int32) error {
	idx, ok := t.allocSlot()
	if !ok {
		return ErrNoCapacity
	}

	s := &t.slots[idx]
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.pgid, s.jobID, s.workerNum = pgid, jobID, workerNum
	s.cycles, s.instructions = 0, 0
	s.resetRequested = false
	s.mu.Unlock()

	publish(&t.region.Slots[idx], pgid, jobID, workerNum, 0, 0)
	t.region.active.set(idx)
	t.region.count.Add(1)

	t.lookupMu.Lock()
	if _, exists := t.lookup[pgid]; exists {
		t.lookupMu.Unlock()
		t.releaseSlot(idx, gen)
		return ErrDuplicate
	}
	t.lookup[pgid] = idx
	t.lookupMu.Unlock()
	return nil
}

// releaseSlot clears a slot's identity, bumps its gen again (so any writer
// still mid-switch for the old gen is discarded), publishes an empty
// snapshot, hides it from readers, and returns it to the free list.
func (t *Table) releaseSlot(idx int, expectGen uint64) {
	t.region.active.clear(idx)
	t.region.count.Add(-1)

	s := &t.slots[idx]
	s.mu.Lock()
	if s.gen == expectGen {
		s.gen++
	}
	s.pgid, s.jobID, s.workerNum = 0, 0, 0
	s.cycles, s.instructions = 0, 0
	s.resetRequested = false
	s.mu.Unlock()

	publish(&t.region.Slots[idx], 0, 0, 0, 0, 0)
	t.freeSlot(idx)
}

// Remove unregisters pgid (spec §4.1). The active-mask bit is cleared
// before the lookup entry is removed so concurrent readers stop seeing the
// slot as soon as possible.
func (t *Table) Remove(pgid types.PGID) error {
	t.lookupMu.RLock()
	idx, ok := t.lookup[pgid]
	t.lookupMu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	s := &t.slots[idx]
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	t.releaseSlot(idx, gen)

	t.lookupMu.Lock()
	delete(t.lookup, pgid)
	t.lookupMu.Unlock()
	return nil
}

// ResetAll arms the reset flag on every active slot. The next switch-out
// for each replaces rather than accumulates its counters, so a subsequent
// snapshot reflects only the interval since the reset (spec §4.1).
func (t *Table) ResetAll() {
	t.region.active.each(func(idx int) bool {
		s := &t.slots[idx]
		s.mu.Lock()
		s.resetRequested = true
		s.mu.Unlock()
		return true
	})
}

// Snapshots returns an iterator over every currently active slot's
// consistent snapshot (spec "snapshot_iter"). Each slot is read under the
// seqlock protocol; readers never acquire a mutex.
func (t *Table) Snapshots() iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		t.region.active.each(func(idx int) bool {
			return yield(read(&t.region.Slots[idx]))
		})
	}
}

// lookupIndex returns the slot index registered for pgid, if any, together
// with the gen it was most recently (re)used under.
func (t *Table) lookupIndex(pgid types.PGID) (idx int, gen uint64, ok bool) {
	t.lookupMu.RLock()
	idx, ok = t.lookup[pgid]
	t.lookupMu.RUnlock()
	if !ok {
		return 0, 0, false
	}
	s := &t.slots[idx]
	s.mu.Lock()
	gen = s.gen
	s.mu.Unlock()
	return idx, gen, true
}
