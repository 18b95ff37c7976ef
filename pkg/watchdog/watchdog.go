// Package watchdog implements the Runtime Watchdog (RW): a periodic
// scanner that flags long-running process groups, emits profiling
// requests, and gates IPC Attribution Table registration on receipt of a
// profiling-completion acknowledgement (spec §4.2).
package watchdog

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ja7ad/smtsched/pkg/iat"
	"github.com/ja7ad/smtsched/pkg/types"
)

// defaultThreshold is the spec's default long-running cutoff.
const defaultThreshold = 3600 * time.Second

// AttributionRegistry is the subset of *iat.Table the watchdog needs.
// Expressed as an interface so Tick's IAT actions can be exercised in
// tests without a real Table.
type AttributionRegistry interface {
	Add(pgid types.PGID, jobID types.JobID, workerNum int32) error
	Remove(pgid types.PGID) error
}

// LivenessChecker reports whether a process group still has tasks. New's
// default treats every PG as alive; DefaultLivenessChecker (see
// resolver_linux.go) probes the group leader with signal 0 and is the
// checker the smtsched daemon installs.
type LivenessChecker func(pgid types.PGID) bool

// Watchdog is the Runtime Watchdog.
type Watchdog struct {
	mu  sync.Mutex
	pgs map[types.PGID]*pgState

	threshold          time.Duration
	emitInitialRequest bool

	notifyCh chan<- NotifyMessage
	isAlive  LivenessChecker
	registry AttributionRegistry

	now func() time.Time
}

// Option configures a Watchdog at construction time.
type Option func(*Watchdog)

// WithThreshold overrides the default 3600s long-running threshold.
func WithThreshold(d time.Duration) Option {
	return func(w *Watchdog) { w.threshold = d }
}

// WithNotifyEndpoint sets the outgoing notification channel up front
// (equivalent to an initial set_notify_endpoint call).
func WithNotifyEndpoint(ch chan<- NotifyMessage) Option {
	return func(w *Watchdog) { w.notifyCh = ch }
}

// WithLivenessChecker overrides how Tick decides a PG has died.
func WithLivenessChecker(fn LivenessChecker) Option {
	return func(w *Watchdog) { w.isAlive = fn }
}

// WithoutInitialRequest disables the spec's optional "need_send_request=1
// at creation" behavior, leaving a freshly admitted PG to wait silently
// until it crosses the threshold.
func WithoutInitialRequest() Option {
	return func(w *Watchdog) { w.emitInitialRequest = false }
}

// withClock overrides time.Now for deterministic tests.
func withClock(fn func() time.Time) Option {
	return func(w *Watchdog) { w.now = fn }
}

// New builds a Watchdog backed by registry (typically an *iat.Table).
func New(registry AttributionRegistry, opts ...Option) *Watchdog {
	w := &Watchdog{
		pgs:                make(map[types.PGID]*pgState),
		threshold:          defaultThreshold,
		emitInitialRequest: true,
		isAlive:            func(types.PGID) bool { return true },
		registry:           registry,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddPGID admits a new PG for watching (spec §4.2 admission control).
func (w *Watchdog) AddPGID(pgid types.PGID, jobID types.JobID, workerNum int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.pgs[pgid]; exists {
		return ErrAlreadyPresent
	}
	w.pgs[pgid] = &pgState{
		jobID:           jobID,
		workerNum:       workerNum,
		startTime:       w.now(),
		needSendRequest: w.emitInitialRequest,
	}
	return nil
}

// RemovePGID forgets pgid, removing it from the attribution table first
// if it had been registered there.
func (w *Watchdog) RemovePGID(pgid types.PGID) error {
	w.mu.Lock()
	st, exists := w.pgs[pgid]
	if !exists {
		w.mu.Unlock()
		return ErrNotFound
	}
	wasRegistered := st.ipcRegistered
	delete(w.pgs, pgid)
	w.mu.Unlock()

	if wasRegistered {
		if err := w.registry.Remove(pgid); err != nil && !errors.Is(err, iat.ErrNotFound) {
			return err
		}
	}
	return nil
}

// SetThreshold updates the long-running cutoff; seconds must be positive.
func (w *Watchdog) SetThreshold(seconds int) error {
	if seconds <= 0 {
		return ErrInvalidThreshold
	}
	w.mu.Lock()
	w.threshold = time.Duration(seconds) * time.Second
	w.mu.Unlock()
	return nil
}

// SetNotifyEndpoint replaces the outgoing notification channel.
func (w *Watchdog) SetNotifyEndpoint(ch chan<- NotifyMessage) {
	w.mu.Lock()
	w.notifyCh = ch
	w.mu.Unlock()
}

// RequestProfile forces the PG identified by pgid to re-send a profiling
// request on the next tick. The spec's command takes a raw pid; resolving
// a pid to its current pgid is the caller's job (see resolver_linux.go's
// ResolvePGID), kept out of this method so it stays platform-independent
// and unit-testable.
func (w *Watchdog) RequestProfile(pgid types.PGID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.pgs[pgid]
	if !ok {
		return ErrNotFound
	}
	st.needSendRequest = true
	return nil
}

// Ack records a profiling-completion acknowledgement for pgid, the
// transition to PROFILED (spec §4.2). It is safe to call concurrently
// with Tick.
func (w *Watchdog) Ack(pgid types.PGID) {
	w.mu.Lock()
	if st, ok := w.pgs[pgid]; ok {
		st.profileDone = true
	}
	w.mu.Unlock()
}

// State reports the observable state of pgid, mainly for tests and
// diagnostics.
func (w *Watchdog) State(pgid types.PGID) (State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.pgs[pgid]
	if !ok {
		return StateDead, false
	}
	return st.state(), true
}

type iatAdd struct {
	pgid      types.PGID
	jobID     types.JobID
	workerNum int32
}

// Tick runs one pass of the two-phase timer (spec §4.2): under the state
// lock it mutates flags and builds three out-lists (dead PGs to forget,
// notifications to send, IAT actions to perform); all I/O happens after
// the lock is released, so Tick never blocks a caller of AddPGID/Ack/etc.
// while a notify or IAT call is in flight.
func (w *Watchdog) Tick() {
	now := w.now()

	var (
		toNotify  []NotifyMessage
		toAdd     []iatAdd
		toRemove  []types.PGID
		toForget  []types.PGID
	)

	w.mu.Lock()
	threshold := w.threshold
	for pgid, st := range w.pgs {
		if !w.isAlive(pgid) {
			if st.ipcRegistered {
				toRemove = append(toRemove, pgid)
			}
			toForget = append(toForget, pgid)
			continue
		}

		elapsed := now.Sub(st.startTime)
		if !st.isLongRunning && elapsed >= threshold {
			st.isLongRunning = true
			st.needSendRequest = true
		}

		if st.needSendRequest {
			toNotify = append(toNotify, NotifyMessage{PGID: pgid, ElapsedSec: int64(elapsed.Seconds()), JobID: st.jobID})
			st.needSendRequest = false
		}

		if st.isLongRunning && st.profileDone && !st.ipcRegistered {
			st.ipcRegistered = true // optimistic; rolled back below on failure
			toAdd = append(toAdd, iatAdd{pgid: pgid, jobID: st.jobID, workerNum: st.workerNum})
		}
	}
	for _, pgid := range toForget {
		delete(w.pgs, pgid)
	}
	notifyCh := w.notifyCh
	w.mu.Unlock()

	// --- I/O outside the lock ---

	for _, msg := range toNotify {
		if err := w.send(notifyCh, msg); err != nil {
			slog.Warn("watchdog: notify dropped, will retry next tick", "pgid", msg.PGID, "err", err)
			w.mu.Lock()
			if st, ok := w.pgs[msg.PGID]; ok {
				st.needSendRequest = true
			}
			w.mu.Unlock()
		}
	}

	for _, a := range toAdd {
		err := w.registry.Add(a.pgid, a.jobID, a.workerNum)
		if err != nil && !errors.Is(err, iat.ErrDuplicate) {
			// Registration failed (e.g. no-capacity): roll back the
			// optimistic flag and retry on a future tick as slots free
			// up (spec §7 Capacity handling).
			w.mu.Lock()
			if st, ok := w.pgs[a.pgid]; ok {
				st.ipcRegistered = false
			}
			w.mu.Unlock()
		}
	}

	for _, pgid := range toRemove {
		if err := w.registry.Remove(pgid); err != nil && !errors.Is(err, iat.ErrNotFound) {
			_ = err // best-effort cleanup of a dead PG; nothing more to do
		}
	}
}

// send performs a non-blocking send, mirroring the kernel's non-blocking
// notification send (spec §5/§6): EAGAIN/ENOBUFS re-arms the request for
// the next tick rather than blocking the watchdog loop. It reports
// ErrEndpointFull both when no endpoint is set and when the endpoint's
// channel is at capacity.
func (w *Watchdog) send(ch chan<- NotifyMessage, msg NotifyMessage) error {
	if ch == nil {
		return ErrEndpointFull
	}
	select {
	case ch <- msg:
		return nil
	default:
		return ErrEndpointFull
	}
}
