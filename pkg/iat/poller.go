//go:build linux

package iat

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"errors"

	"github.com/ja7ad/smtsched/internal/perf"
	"github.com/ja7ad/smtsched/pkg/types"
)

var errShortStat = errors.New("iat: malformed /proc/<pid>/stat")

// Poller drives OnSwitch from a user-space vantage point: since this
// daemon has no kernel hook into the real context-switch path, it samples
// which process group is running on each logical CPU on a tight interval
// and synthesizes a switch event whenever the occupant changes (see
// SPEC_FULL.md §4.1 "Switch-event source"). A logical CPU's hardware
// counters are read only on a tick where its occupant changed, once per
// such synthesized switch event.
type Poller struct {
	table    *Table
	counters []*perf.CounterPair
	interval time.Duration
	occupant []types.PGID
}

// NewPoller opens one counter pair per logical CPU (0..numLogicalCPUs-1)
// and prepares to drive table.
func NewPoller(table *Table, numLogicalCPUs int, interval time.Duration) (*Poller, error) {
	counters := make([]*perf.CounterPair, numLogicalCPUs)
	for cpu := range counters {
		cp, err := perf.OpenCPU(cpu)
		if err != nil {
			for _, opened := range counters[:cpu] {
				opened.Close()
			}
			return nil, err
		}
		counters[cpu] = cp
	}
	return &Poller{
		table:    table,
		counters: counters,
		interval: interval,
		occupant: make([]types.PGID, numLogicalCPUs),
	}, nil
}

// Close releases every counter pair.
func (p *Poller) Close() error {
	var first error
	for _, c := range p.counters {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run polls until ctx is done. A failed scan (e.g. /proc transiently
// unreadable) is skipped rather than fatal, consistent with spec §7's
// transient-I/O handling.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	running, err := scanRunningPerCPU(len(p.counters))
	if err != nil {
		return
	}
	for cpu, next := range running {
		prev := p.occupant[cpu]
		if next == prev {
			continue
		}
		cycles, instructions, err := p.counters[cpu].Read()
		if err != nil {
			// Counter read failure disarms this CPU's state without
			// corrupting any slot (spec §4.1 failure semantics).
			p.occupant[cpu] = 0
			p.table.perCPU[cpu].slotIdx = -1
			continue
		}
		p.table.OnSwitch(cpu, prev, next, cycles, instructions)
		p.occupant[cpu] = next
	}
}

// scanRunningPerCPU returns, for each logical CPU, the process-group id of
// the task currently observed running there (0 if none). It walks /proc
// once per tick, in the teacher's ReadProcStat style.
func scanRunningPerCPU(numLogicalCPUs int) ([]types.PGID, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	result := make([]types.PGID, numLogicalCPUs)
	for _, e := range entries {
		pid, convErr := strconv.Atoi(e.Name())
		if convErr != nil {
			continue
		}
		pgrp, processor, running, readErr := readRunStat(pid)
		if readErr != nil || !running {
			continue
		}
		if processor < 0 || processor >= numLogicalCPUs {
			continue
		}
		result[processor] = types.PGID(pgrp)
	}
	return result, nil
}

// readRunStat reads /proc/<pid>/stat and returns pgrp (field 5), whether
// state (field 3) is 'R', and processor (field 39), using the
// strip-after-comm technique the teacher's ReadProcStat already relies on
// since comm may itself contain spaces or parentheses.
func readRunStat(pid int) (pgrp, processor int, running bool, err error) {
	f, openErr := os.Open("/proc/" + strconv.Itoa(pid) + "/stat")
	if openErr != nil {
		return 0, 0, false, openErr
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, 0, false, sc.Err()
	}
	line := sc.Text()
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return 0, 0, false, errShortStat
	}
	fields := strings.Fields(line[i+2:])
	// fields[0]=state(3) fields[2]=pgrp(5) fields[36]=processor(39)
	if len(fields) <= 36 {
		return 0, 0, false, errShortStat
	}
	running = fields[0] == "R"
	pgrp, convErr := strconv.Atoi(fields[2])
	if convErr != nil {
		return 0, 0, false, convErr
	}
	processor, convErr = strconv.Atoi(fields[36])
	if convErr != nil {
		return 0, 0, false, convErr
	}
	return pgrp, processor, running, nil
}
