// Package config loads the daemon's YAML configuration: watchdog
// threshold, document store path, topology overrides, and the pair
// scheduler's settling interval (spec §7 Configuration).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/smtsched/pkg/types"
)

// Config is the top-level daemon configuration document.
type Config struct {
	Watchdog  WatchdogConfig   `yaml:"watchdog"`
	Store     StoreConfig      `yaml:"store"`
	Topology  TopologyConfig   `yaml:"topology"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Catalog   []ResourceConfig `yaml:"catalog"`
}

// ResourceConfig is one entry of the fixed resource catalog loaded at
// start-up (spec §3): a contended microarchitectural resource and the
// activation function family it uses.
type ResourceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "sequential", "parallel", or "port"
}

// ResourceCatalog resolves the configured resource list into the types the
// score engine and profile loader consume, in the order given (catalog
// order indexes every per-resource WCV vector).
func (c Config) ResourceCatalog() ([]types.Resource, error) {
	out := make([]types.Resource, 0, len(c.Catalog))
	for _, r := range c.Catalog {
		var rt types.ResourceType
		switch r.Type {
		case "sequential":
			rt = types.Sequential
		case "parallel":
			rt = types.Parallel
		case "port":
			rt = types.Port
		default:
			return nil, fmt.Errorf("config: unknown resource type %q for %q", r.Type, r.Name)
		}
		out = append(out, types.Resource{Name: r.Name, Type: rt})
	}
	return out, nil
}

// WatchdogConfig mirrors watchdog.Option's tunables.
type WatchdogConfig struct {
	Threshold time.Duration `yaml:"threshold"`
}

// StoreConfig points at the bbolt document store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TopologyConfig lets an operator override /proc/cpuinfo discovery, for
// hosts where the real topology can't be read (containers, CI) or needs
// to be pinned for a reproducible run.
type TopologyConfig struct {
	// Override, if non-empty, replaces topology.Discover's result.
	// Override[c] lists the logical CPU ids sharing physical core c.
	Override [][]int `yaml:"override"`
}

// SchedulerConfig mirrors scheduler.Option's tunables.
type SchedulerConfig struct {
	NumCandidates int           `yaml:"num_candidates"`
	Settle        time.Duration `yaml:"settle"`
}

func defaults() Config {
	return Config{
		Watchdog: WatchdogConfig{Threshold: 3600 * time.Second},
		Store:    StoreConfig{Path: "smtsched.db"},
		Scheduler: SchedulerConfig{
			NumCandidates: 3,
			Settle:        20 * time.Second,
		},
	}
}

// Load reads and parses the YAML config at path, filling in defaults for
// anything the file doesn't set. A missing file is not an error; Load
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
