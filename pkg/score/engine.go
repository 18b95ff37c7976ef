// Package score implements the Score Engine (SE, spec §4.4): the
// per-resource activation functions, the linear slowdown model, and the
// Score Map the pair scheduler reads candidate pair scores from.
package score

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/types"
)

// Engine holds every admitted job_id's WCV, the active model, and the
// resulting pairwise Score Map.
type Engine struct {
	mu      sync.RWMutex
	catalog []types.Resource
	model   *Model
	wcvs    map[types.JobID]types.WCV
	scores  map[types.PairKey]float64
}

// New builds an Engine against the load-time fixed resource catalog.
func New(catalog []types.Resource) *Engine {
	return &Engine{
		catalog: catalog,
		wcvs:    make(map[types.JobID]types.WCV),
		scores:  make(map[types.PairKey]float64),
	}
}

// ModelLoad parses and installs a trained model document (spec §4.4
// model_load), validating its feature list against the resource catalog.
func (e *Engine) ModelLoad(doc docstore.ModelDoc) error {
	m, err := modelFromDoc(doc, e.catalog)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.model = &m
	e.mu.Unlock()
	return nil
}

// AddWorkload admits a job's WCV, scoring it against every previously
// admitted job_id (including itself, for the self-pair case used by
// Step 2 of the pair scheduler) and publishing into the Score Map (spec
// §4.4 add_workload).
func (e *Engine) AddWorkload(jobID types.JobID, wcv types.WCV) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return ErrNoModel
	}

	for other, otherWCV := range e.wcvs {
		s := pairScore(*e.model, e.catalog, wcv, otherWCV)
		e.scores[types.NewPairKey(jobID, other)] = s
	}
	// self-pair: scored against its own (just-computed) WCV.
	e.scores[types.NewPairKey(jobID, jobID)] = pairScore(*e.model, e.catalog, wcv, wcv)

	e.wcvs[jobID] = wcv
	return nil
}

// Score returns the previously published score(a, b), if both have been
// admitted.
func (e *Engine) Score(a, b types.JobID) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.scores[types.NewPairKey(a, b)]
	return s, ok
}

// ScoreErr is Score for callers that want a descriptive error instead of
// a bare ok flag, e.g. the CLI reporting which job_id wasn't recognized.
func (e *Engine) ScoreErr(a, b types.JobID) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.wcvs[a]; !ok {
		return 0, ErrUnknownJob
	}
	if _, ok := e.wcvs[b]; !ok {
		return 0, ErrUnknownJob
	}
	s, ok := e.scores[types.NewPairKey(a, b)]
	if !ok {
		return 0, ErrUnknownJob
	}
	return s, nil
}

// SingleIPC returns job_id's solo IPC baseline and whether it can
// contribute to throughput normalization (spec §4.4 edge case / §4.5
// Step 6).
func (e *Engine) SingleIPC(jobID types.JobID) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.wcvs[jobID]
	if !ok {
		return 0, false
	}
	return w.SingleIPC, w.HasSingleIPC()
}

// Known reports whether jobID has an admitted WCV.
func (e *Engine) Known(jobID types.JobID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.wcvs[jobID]
	return ok
}

// PrintScoreboard writes a diagnostic table of every published pair
// score, largest first (spec §4.4 print_scoreboard).
func (e *Engine) PrintScoreboard(w io.Writer) {
	e.mu.RLock()
	type row struct {
		pair  types.PairKey
		score float64
	}
	rows := make([]row, 0, len(e.scores))
	for k, v := range e.scores {
		rows = append(rows, row{pair: k, score: v})
	}
	e.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].score > rows[j].score })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB_A\tJOB_B\tSCORE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\n", r.pair.A, r.pair.B, r.score)
	}
	tw.Flush()
}
