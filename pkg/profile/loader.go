// Package profile implements the Profile Data Loader (PDL, spec §4.3):
// the bridge between the watchdog's long-running notifications and the
// document store holding per-workload characteristic vectors.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/types"
)

// Loader is the PDL's load_profile side: it reads raw measurement rows
// for a job and assembles a WCV, retrying transient store errors with a
// bounded exponential backoff before giving up with ErrUnavailable.
type Loader struct {
	store      *docstore.Store
	catalog    []types.Resource
	maxElapsed time.Duration
}

// Option configures a Loader at construction time.
type Option func(*Loader)

// WithMaxElapsed bounds the total time LoadProfile spends retrying a
// transient store error before returning ErrUnavailable. Default 5s.
func WithMaxElapsed(d time.Duration) Option {
	return func(l *Loader) { l.maxElapsed = d }
}

// New builds a Loader over store, deriving WCVs against catalog (the
// load-time fixed resource list, in the order every WCV slice indexes).
func New(store *docstore.Store, catalog []types.Resource, opts ...Option) *Loader {
	l := &Loader{store: store, catalog: catalog, maxElapsed: 5 * time.Second}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadProfile reads the per-workload characteristic documents for
// jobID and derives its WCV (spec §4.3). It fails with ErrNotFound if a
// required resource's baseline measurement is missing, or ErrUnavailable
// if the store keeps erroring past the retry budget.
func (l *Loader) LoadProfile(ctx context.Context, jobID types.JobID) (types.WCV, error) {
	var wcv types.WCV

	operation := func() (types.WCV, error) {
		docs, err := l.store.MeasurementsForJob(int64(jobID))
		if err != nil {
			return types.WCV{}, err // transient: bbolt I/O error, retry
		}
		if len(docs) == 0 {
			return types.WCV{}, backoff.Permanent(ErrNotFound)
		}
		w, err := buildWCV(jobID, l.catalog, docs)
		if err != nil {
			return types.WCV{}, backoff.Permanent(err)
		}
		return w, nil
	}

	bo := backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(l.maxElapsed))
	wcv, err := backoff.RetryWithData(operation, backoff.WithContext(bo, ctx))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.WCV{}, ErrNotFound
		}
		return types.WCV{}, ErrUnavailable
	}
	return wcv, nil
}
