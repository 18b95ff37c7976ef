//go:build linux

// Command smtsched is the interference-aware SMT pair scheduler daemon
// and its diagnostic CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/smtsched/pkg/config"
	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/iat"
	"github.com/ja7ad/smtsched/pkg/profile"
	"github.com/ja7ad/smtsched/pkg/scheduler"
	"github.com/ja7ad/smtsched/pkg/score"
	"github.com/ja7ad/smtsched/pkg/topology"
	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/ja7ad/smtsched/pkg/watchdog"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "smtsched",
		Short: "Interference-aware SMT pair scheduler",
		Long: `smtsched watches long-running process groups, profiles their
contention sensitivity, and periodically repacks sibling SMT threads to
maximize system throughput.

* Config: github.com/ja7ad/smtsched`,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "smtsched.yaml", "path to the daemon's YAML config")

	root.AddCommand(serveCmd(), watchdogCmd(), scoreCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the watchdog, profile loader, score engine and pair scheduler as one daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	catalog, err := cfg.ResourceCatalog()
	if err != nil {
		return fmt.Errorf("resolve catalog: %w", err)
	}

	topo, err := resolveTopology(cfg)
	if err != nil {
		return fmt.Errorf("resolve topology: %w", err)
	}

	store, err := docstore.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	table := iat.NewTable(topo.NumLogicalCPUs)

	poller, err := iat.NewPoller(table, topo.NumLogicalCPUs, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("start poller: %w", err)
	}
	defer poller.Close()

	notifications := make(chan watchdog.NotifyMessage, 64)
	wd := watchdog.New(table,
		watchdog.WithThreshold(cfg.Watchdog.Threshold),
		watchdog.WithNotifyEndpoint(notifications),
		watchdog.WithLivenessChecker(watchdog.DefaultLivenessChecker),
	)

	loader := profile.New(store, catalog)
	engine := score.New(catalog)
	if doc, err := store.LoadModel(); err == nil {
		if err := engine.ModelLoad(doc); err != nil {
			slog.Warn("stored model rejected", "err", err)
		}
	} else if !errors.Is(err, docstore.ErrNotFound) {
		slog.Warn("load model", "err", err)
	}

	affinity := scheduler.NewProcAffinityApplier()
	sched := scheduler.New(topo, engine, scheduler.NewTableAttributionSource(table), engine, affinity,
		scheduler.WithNumCandidates(cfg.Scheduler.NumCandidates),
		scheduler.WithSettle(cfg.Scheduler.Settle),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)
	go profile.Listen(ctx, loader, notifications, wd, func(jobID types.JobID, wcv types.WCV) {
		if err := engine.AddWorkload(jobID, wcv); err != nil {
			slog.Warn("score engine: add workload", "job_id", jobID, "err", err)
		}
	})

	tickTicker := time.NewTicker(time.Second)
	defer tickTicker.Stop()
	packTicker := time.NewTicker(cfg.Scheduler.Settle)
	defer packTicker.Stop()

	slog.Info("smtsched daemon started", "logical_cpus", topo.NumLogicalCPUs, "store", cfg.Store.Path)
	for {
		select {
		case <-ctx.Done():
			slog.Info("smtsched daemon shutting down")
			return nil
		case <-tickTicker.C:
			wd.Tick()
		case <-packTicker.C:
			snapshots := activeSnapshots(table)
			sched.RunCycle(ctx, snapshots)
		}
	}
}

func resolveTopology(cfg config.Config) (*topology.Topology, error) {
	if len(cfg.Topology.Override) > 0 {
		return topology.FromOverride(cfg.Topology.Override), nil
	}
	return topology.Discover()
}

func activeSnapshots(table *iat.Table) []scheduler.Snapshot {
	var out []scheduler.Snapshot
	for s := range table.Snapshots() {
		out = append(out, scheduler.Snapshot{PGID: s.PGID, JobID: s.JobID, WorkerNum: s.WorkerNum})
	}
	return out
}

func watchdogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchdog",
		Short: "Drive the Runtime Watchdog's admission and control operations",
		Long: `These subcommands exercise the same operations *watchdog.Watchdog
exposes to an in-process caller, against a short-lived watchdog instance
backed by a fresh attribution table. They are a diagnostic/demo surface,
not a control channel to a running "serve" daemon.`,
	}
	cmd.AddCommand(
		watchdogAddPGIDCmd(),
		watchdogRemovePGIDCmd(),
		watchdogSetThresholdCmd(),
		watchdogRequestProfileCmd(),
	)
	return cmd
}

func watchdogAddPGIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-pgid <pgid> <job_id> <worker_num>",
		Short: "Admit a process group for watching",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pgid, jobID, workers, err := parsePGDArgs(args)
			if err != nil {
				return err
			}
			wd := watchdog.New(iat.NewTable(1))
			if err := wd.AddPGID(pgid, jobID, workers); err != nil {
				return err
			}
			fmt.Printf("admitted pgid=%d job_id=%d workers=%d\n", pgid, jobID, workers)
			return nil
		},
	}
}

func watchdogRemovePGIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-pgid <pgid>",
		Short: "Forget a process group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pgid, err := parsePGID(args[0])
			if err != nil {
				return err
			}
			table := iat.NewTable(1)
			wd := watchdog.New(table)
			_ = wd.AddPGID(pgid, 0, 1)
			if err := wd.RemovePGID(pgid); err != nil {
				return err
			}
			fmt.Printf("removed pgid=%d\n", pgid)
			return nil
		},
	}
}

func watchdogSetThresholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-threshold <seconds>",
		Short: "Override the long-running cutoff for a fresh watchdog instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid seconds: %w", err)
			}
			wd := watchdog.New(iat.NewTable(1))
			if err := wd.SetThreshold(seconds); err != nil {
				return err
			}
			fmt.Printf("threshold set to %ds\n", seconds)
			return nil
		},
	}
}

func watchdogRequestProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request-profile <pid>",
		Short: "Force a re-profile request for the pid's process group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid: %w", err)
			}
			pgid, err := watchdog.ResolvePGID(pid)
			if err != nil {
				return fmt.Errorf("resolve pgid: %w", err)
			}
			table := iat.NewTable(1)
			wd := watchdog.New(table)
			_ = wd.AddPGID(pgid, 0, 1)
			if err := wd.RequestProfile(pgid); err != nil {
				return err
			}
			fmt.Printf("requested re-profile for pgid=%d (pid=%d)\n", pgid, pid)
			return nil
		},
	}
}

func parsePGDArgs(args []string) (types.PGID, types.JobID, int32, error) {
	pgid, err := parsePGID(args[0])
	if err != nil {
		return 0, 0, 0, err
	}
	jobID, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid job_id: %w", err)
	}
	workers, err := strconv.Atoi(args[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid worker_num: %w", err)
	}
	return pgid, types.JobID(jobID), int32(workers), nil
}

func parsePGID(s string) (types.PGID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid pgid: %w", err)
	}
	return types.PGID(n), nil
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score engine diagnostics",
	}
	cmd.AddCommand(scorePrintScoreboardCmd(), scorePairCmd())
	return cmd
}

func scorePairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair <job_a> <job_b>",
		Short: "Print the published score for one pair of job_ids",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid job_a: %w", err)
			}
			b, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid job_b: %w", err)
			}
			return printPairScore(cmd.Context(), types.JobID(a), types.JobID(b))
		},
	}
}

func printPairScore(ctx context.Context, a, b types.JobID) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	catalog, err := cfg.ResourceCatalog()
	if err != nil {
		return fmt.Errorf("resolve catalog: %w", err)
	}
	store, err := docstore.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	doc, err := store.LoadModel()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	engine := score.New(catalog)
	if err := engine.ModelLoad(doc); err != nil {
		return fmt.Errorf("load model into score engine: %w", err)
	}

	loader := profile.New(store, catalog)
	for _, jobID := range []types.JobID{a, b} {
		wcv, err := loader.LoadProfile(ctx, jobID)
		if err != nil {
			return fmt.Errorf("load profile for job_id %d: %w", jobID, err)
		}
		if err := engine.AddWorkload(jobID, wcv); err != nil {
			return fmt.Errorf("add workload for job_id %d: %w", jobID, err)
		}
	}

	s, err := engine.ScoreErr(a, b)
	if err != nil {
		return err
	}
	fmt.Printf("score(%d, %d) = %.4f\n", a, b, s)
	return nil
}

func scorePrintScoreboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print-scoreboard",
		Short: "Derive every stored job's WCV, score all pairs, and print the scoreboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printScoreboard(cmd.Context())
		},
	}
}

func printScoreboard(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	catalog, err := cfg.ResourceCatalog()
	if err != nil {
		return fmt.Errorf("resolve catalog: %w", err)
	}
	store, err := docstore.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	doc, err := store.LoadModel()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	engine := score.New(catalog)
	if err := engine.ModelLoad(doc); err != nil {
		return fmt.Errorf("load model into score engine: %w", err)
	}

	jobIDs, err := store.KnownJobIDs()
	if err != nil {
		return fmt.Errorf("enumerate known jobs: %w", err)
	}

	loader := profile.New(store, catalog)
	for _, id := range jobIDs {
		jobID := types.JobID(id)
		wcv, err := loader.LoadProfile(ctx, jobID)
		if err != nil {
			slog.Warn("skip job, profile unavailable", "job_id", jobID, "err", err)
			continue
		}
		if err := engine.AddWorkload(jobID, wcv); err != nil {
			slog.Warn("skip job, add workload failed", "job_id", jobID, "err", err)
		}
	}

	engine.PrintScoreboard(os.Stdout)
	return nil
}
