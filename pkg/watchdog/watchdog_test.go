package watchdog

import (
	"testing"
	"time"

	"github.com/ja7ad/smtsched/pkg/iat"
	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	added   map[types.PGID]bool
	removed map[types.PGID]bool
	failAdd bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{added: map[types.PGID]bool{}, removed: map[types.PGID]bool{}}
}

func (f *fakeRegistry) Add(pgid types.PGID, jobID types.JobID, workerNum int32) error {
	if f.failAdd {
		return iat.ErrNoCapacity
	}
	f.added[pgid] = true
	return nil
}

func (f *fakeRegistry) Remove(pgid types.PGID) error {
	if !f.added[pgid] {
		return iat.ErrNotFound
	}
	f.removed[pgid] = true
	delete(f.added, pgid)
	return nil
}

func clockAt(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestAckGating_NeverRegisteredWithoutAck(t *testing.T) {
	now := time.Unix(0, 0)
	reg := newFakeRegistry()
	notify := make(chan NotifyMessage, 8)
	w := New(reg, withClock(clockAt(&now)), WithThreshold(1*time.Second), WithNotifyEndpoint(notify))

	require.NoError(t, w.AddPGID(42, 1, 2))

	now = now.Add(2 * time.Second) // cross the threshold
	w.Tick()

	assert.False(t, reg.added[42], "must not register pgid until ACK arrives")
	st, _ := w.State(42)
	assert.Equal(t, StateRequested, st)

	w.Ack(42)
	w.Tick()

	assert.True(t, reg.added[42])
	st, _ = w.State(42)
	assert.Equal(t, StateRegistered, st)
}

func TestTick_RollsBackOnRegistrationFailure(t *testing.T) {
	now := time.Unix(0, 0)
	reg := newFakeRegistry()
	reg.failAdd = true
	w := New(reg, withClock(clockAt(&now)), WithThreshold(0))

	require.NoError(t, w.AddPGID(1, 1, 1))
	w.Ack(1)
	now = now.Add(time.Second)
	w.Tick()

	st, _ := w.State(1)
	assert.Equal(t, StateProfiled, st, "failed registration must roll back to PROFILED, not REGISTERED")

	reg.failAdd = false
	w.Tick()
	st, _ = w.State(1)
	assert.Equal(t, StateRegistered, st)
}

func TestDeadPG_RemovedFromIAT(t *testing.T) {
	now := time.Unix(0, 0)
	reg := newFakeRegistry()
	alive := true
	w := New(reg, withClock(clockAt(&now)), WithThreshold(0),
		WithLivenessChecker(func(types.PGID) bool { return alive }))

	require.NoError(t, w.AddPGID(7, 1, 1))
	w.Ack(7)
	w.Tick()
	assert.True(t, reg.added[7])

	alive = false
	w.Tick()
	assert.True(t, reg.removed[7])
	_, ok := w.State(7)
	assert.False(t, ok)
}

func TestNotifyEndpointFull_RearmsRequest(t *testing.T) {
	now := time.Unix(0, 0)
	reg := newFakeRegistry()
	notify := make(chan NotifyMessage) // unbuffered, nobody reads -> always full
	w := New(reg, withClock(clockAt(&now)), WithThreshold(0), WithNotifyEndpoint(notify))

	require.NoError(t, w.AddPGID(5, 1, 1))
	w.Tick()

	// needSendRequest should have been re-armed rather than lost.
	w.mu.Lock()
	st := w.pgs[5]
	rearmed := st.needSendRequest
	w.mu.Unlock()
	assert.True(t, rearmed)
}

func TestAddPGID_Duplicate(t *testing.T) {
	w := New(newFakeRegistry())
	require.NoError(t, w.AddPGID(1, 1, 1))
	assert.ErrorIs(t, w.AddPGID(1, 2, 2), ErrAlreadyPresent)
}

func TestSetThreshold_RejectsNonPositive(t *testing.T) {
	w := New(newFakeRegistry())
	assert.ErrorIs(t, w.SetThreshold(0), ErrInvalidThreshold)
	assert.ErrorIs(t, w.SetThreshold(-1), ErrInvalidThreshold)
	assert.NoError(t, w.SetThreshold(60))
}
