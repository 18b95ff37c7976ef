package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ja7ad/smtsched/pkg/topology"
)

// Config bundles the knobs for one assignment cycle (spec §4.5 Step 6).
type Config struct {
	// NumCandidates is k: the rotated-selection candidates and the
	// random baselines generated alongside the best selection.
	NumCandidates int
	// Settle is how long each candidate is left running before its
	// STP is sampled.
	Settle time.Duration
}

func defaultConfig() Config {
	return Config{NumCandidates: 3, Settle: 20 * time.Second}
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

func WithNumCandidates(k int) Option {
	return func(s *Scheduler) { s.cfg.NumCandidates = k }
}

func WithSettle(d time.Duration) Option {
	return func(s *Scheduler) { s.cfg.Settle = d }
}

// withRand and withSleep exist only for tests: they swap the
// nondeterministic dependencies (random shuffles, the settling wait)
// for fakes.
func withRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

func withSleep(fn func(context.Context, time.Duration)) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// Scheduler runs one Pair Scheduler assignment cycle end to end (spec
// §4.5 Steps 1-7): discover targets, enumerate and greedily select
// pairs, 2-opt improve, pack onto cores, empirically validate a small
// candidate pool, and commit the winner's affinity.
type Scheduler struct {
	topo      *topology.Topology
	scores    ScoreSource
	iat       AttributionSource
	singleIPC SingleIPCSource
	affinity  AffinityApplier

	cfg   Config
	rng   *rand.Rand
	sleep func(context.Context, time.Duration)
}

func New(topo *topology.Topology, scores ScoreSource, iat AttributionSource, singleIPC SingleIPCSource, affinity AffinityApplier, opts ...Option) *Scheduler {
	s := &Scheduler{
		topo:      topo,
		scores:    scores,
		iat:       iat,
		singleIPC: singleIPC,
		affinity:  affinity,
		cfg:       defaultConfig(),
		rng:       rand.New(rand.NewSource(1)),
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle executes one full assignment cycle against the live
// snapshots it is given and commits the winning candidate's affinity.
// It returns the winning STP score for diagnostics.
func (s *Scheduler) RunCycle(ctx context.Context, snapshots []Snapshot) float64 {
	targets := DiscoverTargets(snapshots, s.topo.NumLogicalCPUs)
	if TotalWorkers(targets) == 0 {
		return 0
	}

	sorted := EnumeratePairs(targets, s.scores)
	candidates := GenerateCandidates(targets, sorted, s.scores, s.topo, s.cfg.NumCandidates, s.rng)

	winner, stp := RunEmpiricalValidation(ctx, candidates, s.iat, s.singleIPC, s.affinity, s.cfg.Settle, s.sleep)
	if winner == nil {
		slog.Warn("pair scheduler: no viable candidate produced an assignment")
		return 0
	}

	CommitAffinity(winner, s.affinity)
	slog.Info("pair scheduler: committed winning candidate", "stp", stp, "pgids", len(winner))
	return stp
}
