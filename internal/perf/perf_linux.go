//go:build linux

// Package perf wraps the two hardware counters (cycles, instructions) the
// attribution table needs per logical CPU, via perf_event_open(2). This is
// the user-space stand-in for the pair of per-CPU counter handles a real
// kernel module would keep (spec §4.1 "State").
package perf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CounterPair holds the two perf_event file descriptors for one logical
// CPU: retired cycles and retired instructions.
type CounterPair struct {
	cyclesFD int
	instrFD  int
}

// OpenCPU opens both hardware counters pinned to logical CPU cpu, counting
// across every process on that CPU (pid -1), matching the spec's "per
// logical CPU has its own counter pair."
func OpenCPU(cpu int) (*CounterPair, error) {
	cycles, err := openHW(unix.PERF_COUNT_HW_CPU_CYCLES, cpu)
	if err != nil {
		return nil, fmt.Errorf("perf: open cycles counter on cpu %d: %w", cpu, err)
	}
	instr, err := openHW(unix.PERF_COUNT_HW_INSTRUCTIONS, cpu)
	if err != nil {
		unix.Close(cycles)
		return nil, fmt.Errorf("perf: open instructions counter on cpu %d: %w", cpu, err)
	}
	if err := unix.IoctlSetInt(cycles, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		unix.Close(cycles)
		unix.Close(instr)
		return nil, fmt.Errorf("perf: enable cycles counter: %w", err)
	}
	if err := unix.IoctlSetInt(instr, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		unix.Close(cycles)
		unix.Close(instr)
		return nil, fmt.Errorf("perf: enable instructions counter: %w", err)
	}
	return &CounterPair{cyclesFD: cycles, instrFD: instr}, nil
}

func openHW(config uint64, cpu int) (int, error) {
	attr := &unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Size:   uint32(unsafeSizeofPerfEventAttr),
		Config: config,
		Bits:   unix.PerfBitDisabled,
	}
	return unix.PerfEventOpen(attr, -1, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
}

// Read returns the current cumulative (cycles, instructions) values. The
// counters never reset between reads; callers take deltas themselves
// (spec §4.1 step 4-5 wraparound-safe subtraction).
func (c *CounterPair) Read() (cycles, instructions uint64, err error) {
	cycles, err = readCounter(c.cyclesFD)
	if err != nil {
		return 0, 0, fmt.Errorf("perf: read cycles: %w", err)
	}
	instructions, err = readCounter(c.instrFD)
	if err != nil {
		return 0, 0, fmt.Errorf("perf: read instructions: %w", err)
	}
	return cycles, instructions, nil
}

func readCounter(fd int) (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil {
		return 0, err
	}
	if n != 8 {
		return 0, fmt.Errorf("perf: short read (%d bytes)", n)
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// Close releases both file descriptors.
func (c *CounterPair) Close() error {
	err1 := unix.Close(c.cyclesFD)
	err2 := unix.Close(c.instrFD)
	if err1 != nil {
		return err1
	}
	return err2
}

// unsafeSizeofPerfEventAttr is the value written to perf_event_attr.size:
// the fixed 120-byte layout, not the Go size of unix.PerfEventAttr (which
// newer x/sys releases extend past 120 bytes). The kernel reads only the
// first Size bytes, so the fields beyond them are not passed.
const unsafeSizeofPerfEventAttr = 120
