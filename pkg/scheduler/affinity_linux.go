//go:build linux

package scheduler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/smtsched/pkg/types"
)

// procFS abstracts the /proc reads ProcAffinityApplier needs, so the
// descendant walk can be exercised without a real /proc tree.
type procFS interface {
	children(pid int) []int
	setAffinity(pid int, cpus []int) error
}

type linuxProcFS struct{}

// children mirrors the teacher's ReadProcChildren: every
// /proc/<pid>/task/*/children file lists that thread's direct children
// as space-separated pids.
func (linuxProcFS) children(pid int) []int {
	glob := fmt.Sprintf("/proc/%d/task/*/children", pid)
	paths, _ := filepath.Glob(glob)
	set := map[int]struct{}{}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		for _, s := range strings.Fields(string(b)) {
			if id, err := strconv.Atoi(s); err == nil {
				set[id] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (linuxProcFS) setAffinity(pid int, cpus []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cpus {
		set.Set(c)
	}
	err := unix.SchedSetaffinity(pid, &set)
	// sched_setaffinity(2) acts on one thread; cover pid's other threads
	// listed under /proc/<pid>/task, ignoring threads that already exited.
	tasks, _ := filepath.Glob(fmt.Sprintf("/proc/%d/task/*", pid))
	for _, p := range tasks {
		tid, convErr := strconv.Atoi(filepath.Base(p))
		if convErr != nil || tid == pid {
			continue
		}
		if tErr := unix.SchedSetaffinity(tid, &set); tErr != nil && tErr != unix.ESRCH && err == nil {
			err = tErr
		}
	}
	return err
}

// ProcAffinityApplier implements AffinityApplier by walking the process
// group leader's descendant tree (spec §4.5 Step 7: "recursively applied
// to all threads and descendant processes") and committing the CPU set
// to each pid it finds. A pgid is treated as its leader pid.
type ProcAffinityApplier struct {
	fs procFS
}

func NewProcAffinityApplier() *ProcAffinityApplier {
	return &ProcAffinityApplier{fs: linuxProcFS{}}
}

// Apply sets affinity on pgid and every descendant reachable through
// /proc/<pid>/task/*/children, breadth-first, tolerating individual
// syscall failures.
func (a *ProcAffinityApplier) Apply(pgid types.PGID, cpus []int) error {
	root := int(pgid)
	queue := []int{root}
	seen := map[int]struct{}{root: {}}
	var firstErr error

	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]

		if err := a.fs.setAffinity(pid, cpus); err != nil {
			slog.Warn("sched_setaffinity failed", "pid", pid, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}

		for _, child := range a.fs.children(pid) {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return firstErr
}
