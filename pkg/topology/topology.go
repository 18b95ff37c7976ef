// Package topology discovers the sibling-core map (spec §3 Runqueue
// Model: "mapping from physical core id to ordered pair of logical-thread
// ids") from /proc/cpuinfo.
package topology

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNoCPUs is returned when /proc/cpuinfo yields no processor entries.
var ErrNoCPUs = errors.New("topology: no logical CPUs found")

// Topology is the discovered sibling-core map: Core[c] lists the logical
// CPU ids sharing physical core c, in ascending order.
type Topology struct {
	Core           [][]int
	NumLogicalCPUs int

	logicalToCore map[int]int
}

// Discover parses /proc/cpuinfo and groups logical CPUs by (physical_id,
// core_id). On a single-socket system physical_id is implicitly 0 for
// every entry.
func Discover() (*Topology, error) {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return discoverFrom(f)
}

type cpuEntry struct {
	processor, physicalID, coreID int
	haveCore                      bool
}

func discoverFrom(r io.Reader) (*Topology, error) {
	sc := bufio.NewScanner(r)

	var entries []cpuEntry
	cur := cpuEntry{processor: -1}
	flush := func() {
		if cur.processor >= 0 {
			entries = append(entries, cur)
		}
	}

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			cur = cpuEntry{processor: -1}
			continue
		}
		key, val, ok := splitCPUInfoLine(line)
		if !ok {
			continue
		}
		switch key {
		case "processor":
			flush()
			cur = cpuEntry{processor: -1}
			if n, err := strconv.Atoi(val); err == nil {
				cur.processor = n
			}
		case "physical id":
			if n, err := strconv.Atoi(val); err == nil {
				cur.physicalID = n
			}
		case "core id":
			if n, err := strconv.Atoi(val); err == nil {
				cur.coreID = n
				cur.haveCore = true
			}
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoCPUs
	}

	return buildTopology(entries), nil
}

func splitCPUInfoLine(line string) (key, val string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func buildTopology(entries []cpuEntry) *Topology {
	type coreKey struct{ physicalID, coreID int }
	byCore := make(map[coreKey][]int)
	var order []coreKey
	seen := make(map[coreKey]bool)

	for _, e := range entries {
		k := coreKey{physicalID: e.physicalID, coreID: e.coreID}
		if !e.haveCore {
			// degrade gracefully: treat every logical CPU as its own core.
			k = coreKey{physicalID: e.physicalID, coreID: e.processor}
		}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
		byCore[k] = append(byCore[k], e.processor)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].physicalID != order[j].physicalID {
			return order[i].physicalID < order[j].physicalID
		}
		return order[i].coreID < order[j].coreID
	})

	t := &Topology{logicalToCore: make(map[int]int)}
	for _, k := range order {
		ids := byCore[k]
		sort.Ints(ids)
		coreIdx := len(t.Core)
		t.Core = append(t.Core, ids)
		for _, id := range ids {
			t.logicalToCore[id] = coreIdx
			t.NumLogicalCPUs++
		}
	}
	return t
}

// FromOverride builds a Topology directly from an operator-supplied
// core grouping, bypassing /proc/cpuinfo discovery (spec §7
// Configuration: "topology overrides", for hosts where the real
// topology can't be read or must be pinned for a reproducible run).
func FromOverride(core [][]int) *Topology {
	t := &Topology{logicalToCore: make(map[int]int)}
	for coreIdx, ids := range core {
		cp := append([]int(nil), ids...)
		sort.Ints(cp)
		t.Core = append(t.Core, cp)
		for _, id := range cp {
			t.logicalToCore[id] = coreIdx
			t.NumLogicalCPUs++
		}
	}
	return t
}

// CoreOf returns the physical-core index owning logical CPU id.
func (t *Topology) CoreOf(logicalCPU int) (int, bool) {
	c, ok := t.logicalToCore[logicalCPU]
	return c, ok
}

// Siblings returns every logical CPU sharing a physical core with id,
// id included.
func (t *Topology) Siblings(logicalCPU int) []int {
	c, ok := t.logicalToCore[logicalCPU]
	if !ok {
		return nil
	}
	return t.Core[c]
}
