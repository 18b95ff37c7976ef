package watchdog

import (
	"time"

	"github.com/ja7ad/smtsched/pkg/types"
)

// State names the watchdog's per-PG state machine (spec §4.2). It is
// derived from the flag set on demand for observability; the flags
// themselves, not this enum, are what Tick actually branches on.
type State int

const (
	StateNew State = iota
	StateRequested
	StateProfiled
	StateRegistered
	StateDead
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRequested:
		return "REQUESTED"
	case StateProfiled:
		return "PROFILED"
	case StateRegistered:
		return "REGISTERED"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// pgState is the per-PG record of spec §4.2: "pgid -> (start_time,
// is_long_running, need_send_request, profile_done, ipc_registered,
// job_id, worker_num)".
type pgState struct {
	jobID     types.JobID
	workerNum int32

	startTime time.Time

	isLongRunning   bool
	needSendRequest bool
	profileDone     bool
	ipcRegistered   bool
}

// state derives the observable State from the flags.
func (p *pgState) state() State {
	switch {
	case p.ipcRegistered:
		return StateRegistered
	case p.profileDone:
		return StateProfiled
	case p.isLongRunning:
		return StateRequested
	default:
		return StateNew
	}
}

// NotifyMessage is the kernel-to-user-space notification of §6:
// "<pgid>,<elapsed_sec>,<job_id>".
type NotifyMessage struct {
	PGID       types.PGID
	ElapsedSec int64
	JobID      types.JobID
}
