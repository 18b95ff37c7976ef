package scheduler

import (
	"log/slog"
	"sort"

	"github.com/ja7ad/smtsched/pkg/types"
)

// ScoreSource is the subset of *score.Engine the scheduler needs,
// expressed as an interface so pair selection can be tested without a
// real Score Map.
type ScoreSource interface {
	Score(a, b types.JobID) (float64, bool)
}

// Candidate is one enumerated pair of targets, indexed into the target
// slice DiscoverTargets returned.
type Candidate struct {
	I, J  int // target indices; I==J denotes a self-pair
	Score float64
}

// EnumeratePairs implements spec §4.5 Step 2: every unordered pair of
// targets, including self-pairs when worker_num >= 2, scored from
// scores and sorted descending. A pair whose score is unknown (Score map
// gap) is excluded and logged as a warning (spec §4.5 Failure
// semantics); pairs involving the sentinel padding entry, which never has
// a score, are excluded without a warning.
func EnumeratePairs(targets []Target, scores ScoreSource) []Candidate {
	var candidates []Candidate
	for i := 0; i < len(targets); i++ {
		for j := i; j < len(targets); j++ {
			if i == j && targets[i].WorkerNum < 2 {
				continue
			}
			s, ok := scores.Score(targets[i].JobID, targets[j].JobID)
			if !ok {
				if targets[i].PGID != types.SentinelPGID && targets[j].PGID != types.SentinelPGID {
					slog.Warn("pair scheduler: no score for pair, excluded", "job_a", targets[i].JobID, "job_b", targets[j].JobID)
				}
				continue
			}
			candidates = append(candidates, Candidate{I: i, J: j, Score: s})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].Score > candidates[b].Score })
	return candidates
}
