package iat

import (
	"github.com/ja7ad/smtsched/pkg/mathutil"
	"github.com/ja7ad/smtsched/pkg/types"
)

// OnSwitch implements the context-switch algorithm of spec §4.1. cpu is
// the logical CPU the switch happened on; prevPGID/nextPGID identify the
// outgoing and incoming tasks' process groups (0 if the task belongs to no
// tracked PG); cycles/instructions are the hardware counter values read at
// the moment of the switch.
//
// Counter-read failure (step 4 in the spec) is handled by the caller: it
// skips OnSwitch for that event and sets the CPU's per-CPU slotIdx to -1
// (Poller.tick does both), which disarms the per-CPU state without
// touching slot data, matching the failure semantics in §4.1.
func (t *Table) OnSwitch(cpu int, prevPGID, nextPGID types.PGID, cycles, instructions uint64) {
	cur := &t.perCPU[cpu]
	prevSlotIdx, prevGen := cur.slotIdx, cur.gen

	nextIdx, nextGen, nextOK := 0, uint64(0), false
	if nextPGID != 0 {
		nextIdx, nextGen, nextOK = t.lookupIndex(nextPGID)
	}

	if prevSlotIdx < 0 && !nextOK {
		return
	}

	if prevSlotIdx >= 0 {
		s := &t.slots[prevSlotIdx]
		s.mu.Lock()
		if s.gen == prevGen {
			dCycles := mathutil.DeltaU64(cycles, cur.startCycles)
			dInstr := mathutil.DeltaU64(instructions, cur.startInstructions)
			if s.resetRequested {
				s.cycles = dCycles
				s.instructions = dInstr
				s.resetRequested = false
			} else {
				s.cycles += dCycles
				s.instructions += dInstr
			}
			publish(&t.region.Slots[prevSlotIdx], s.pgid, s.jobID, s.workerNum, s.cycles, s.instructions)
		}
		// A gen mismatch means the slot was reused since switch-in;
		// the delta is silently discarded (spec §4.1 failure semantics).
		s.mu.Unlock()
	}

	if nextOK {
		cur.slotIdx = nextIdx
		cur.gen = nextGen
		cur.startCycles = cycles
		cur.startInstructions = instructions
	} else {
		cur.slotIdx = -1
	}
}
