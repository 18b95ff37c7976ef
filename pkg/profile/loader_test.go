package profile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/ja7ad/smtsched/pkg/watchdog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLoader(t *testing.T) (*Loader, *docstore.Store) {
	t.Helper()
	s, err := docstore.Open(filepath.Join(t.TempDir(), "profile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, catalog, WithMaxElapsed(200*time.Millisecond)), s
}

func TestLoadProfile_NotFoundForUnknownJob(t *testing.T) {
	loader, _ := openTestLoader(t)
	_, err := loader.LoadProfile(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadProfile_SucceedsOnceRowsExist(t *testing.T) {
	loader, store := openTestLoader(t)
	require.NoError(t, store.PutMeasurement(measRow(7, docstore.SingleFeature, docstore.RunTypeWorkload, docstore.PressureSolo, 2.0, 1)))
	require.NoError(t, store.PutMeasurement(measRow(7, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.5, 1)))
	require.NoError(t, store.PutMeasurement(measRow(7, "issue_queue", docstore.RunTypeWorkload, docstore.PressureLow, 1.8, 1)))

	wcv, err := loader.LoadProfile(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, types.JobID(7), wcv.JobID)
	assert.Equal(t, 2.0, wcv.SingleIPC)
}

type fakeAckSink struct {
	acked []types.PGID
	onAck func()
}

func (f *fakeAckSink) Ack(pgid types.PGID) {
	f.acked = append(f.acked, pgid)
	if f.onAck != nil {
		f.onAck()
	}
}

func TestListen_SuccessfulLoadAcksAndDeliversWCV(t *testing.T) {
	loader, store := openTestLoader(t)
	require.NoError(t, store.PutMeasurement(measRow(7, docstore.SingleFeature, docstore.RunTypeWorkload, docstore.PressureSolo, 2.0, 1)))
	require.NoError(t, store.PutMeasurement(measRow(7, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.5, 1)))
	require.NoError(t, store.PutMeasurement(measRow(7, "issue_queue", docstore.RunTypeWorkload, docstore.PressureLow, 1.8, 1)))

	notifications := make(chan watchdog.NotifyMessage, 1)
	done := make(chan struct{})
	// Listen acks after onProfile returns, so wait for the ack itself.
	ack := &fakeAckSink{onAck: func() { close(done) }}

	var delivered types.WCV
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		Listen(ctx, loader, notifications, ack, func(jobID types.JobID, wcv types.WCV) {
			delivered = wcv
		})
	}()

	notifications <- watchdog.NotifyMessage{PGID: 99, JobID: 7, ElapsedSec: 3601}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("profile was never delivered and acked")
	}

	assert.Equal(t, types.JobID(7), delivered.JobID)
	require.Len(t, ack.acked, 1)
	assert.Equal(t, types.PGID(99), ack.acked[0])
}

func TestListen_FailedLoadNeverAcks(t *testing.T) {
	loader, _ := openTestLoader(t)
	notifications := make(chan watchdog.NotifyMessage, 1)
	ack := &fakeAckSink{}

	ctx, cancel := context.WithCancel(context.Background())
	notifications <- watchdog.NotifyMessage{PGID: 5, JobID: 404, ElapsedSec: 3601}

	go Listen(ctx, loader, notifications, ack, nil)
	time.Sleep(50 * time.Millisecond)
	cancel()

	assert.Empty(t, ack.acked, "a missing profile must not be acked")
}
