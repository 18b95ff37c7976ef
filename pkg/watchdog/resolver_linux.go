//go:build linux

package watchdog

import (
	"github.com/ja7ad/smtsched/pkg/types"
	"golang.org/x/sys/unix"
)

// ResolvePGID maps a pid to its current process-group id, for
// RequestProfile(pid) callers (spec §4.2's command surface takes a pid;
// Watchdog.RequestProfile takes the already-resolved pgid so the method
// itself stays platform-independent).
func ResolvePGID(pid int) (types.PGID, error) {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return 0, err
	}
	return types.PGID(pgid), nil
}

// DefaultLivenessChecker probes the process-group leader with signal 0,
// the standard way to check process liveness without side effects.
func DefaultLivenessChecker(pgid types.PGID) bool {
	return unix.Kill(int(pgid), 0) == nil
}
