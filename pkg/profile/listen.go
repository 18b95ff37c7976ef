package profile

import (
	"context"
	"log/slog"

	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/ja7ad/smtsched/pkg/watchdog"
)

// AckSink is the subset of *watchdog.Watchdog Listen needs: recording a
// profiling-completion acknowledgement (spec §4.3 send_ack).
type AckSink interface {
	Ack(pgid types.PGID)
}

// Listen implements the PDL event loop of spec §4.3: it blocks on
// notifications, loads each PG's profile, hands the resulting WCV to
// onProfile, and acks the watchdog so the PG can proceed to PROFILED.
// A failed load (not-found or unavailable) is logged and the PG is left
// unacknowledged rather than treated as fatal, matching the "data
// absence" edge case of spec §7.
//
// Listen returns when notifications is closed or ctx is done.
func Listen(ctx context.Context, loader *Loader, notifications <-chan watchdog.NotifyMessage, ack AckSink, onProfile func(types.JobID, types.WCV)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-notifications:
			if !ok {
				return
			}
			wcv, err := loader.LoadProfile(ctx, msg.JobID)
			if err != nil {
				slog.Warn("profile load failed", "pgid", msg.PGID, "job_id", msg.JobID, "err", err)
				continue
			}
			if onProfile != nil {
				onProfile(msg.JobID, wcv)
			}
			ack.Ack(msg.PGID)
		}
	}
}
