package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTwoOptImprove_SwapsWhenCrosswiseScoresHigher(t *testing.T) {
	// four targets 0,1,2,3; initial pairing (0-1),(2-3) scores low,
	// crosswise pairing (0-2),(1-3) scores much higher.
	scoreTable := map[[2]int]float64{
		{0, 1}: 0.1, {2, 3}: 0.1,
		{0, 2}: 0.9, {1, 3}: 0.9,
		{0, 3}: 0.2, {1, 2}: 0.2,
	}
	lookup := func(i, j int) float64 {
		if i > j {
			i, j = j, i
		}
		return scoreTable[[2]int{i, j}]
	}

	selected := []SelectedPair{{I: 0, J: 1, Score: 0.1}, {I: 2, J: 3, Score: 0.1}}
	improved := TwoOptImprove(selected, lookup)

	var total float64
	for _, s := range improved {
		total += s.Score
	}
	assert.InDelta(t, 1.8, total, 1e-9)
}

func TestTwoOptImprove_KeepsAlreadyOptimalPairing(t *testing.T) {
	scoreTable := map[[2]int]float64{
		{0, 1}: 0.9, {2, 3}: 0.9,
		{0, 2}: 0.1, {1, 3}: 0.1,
		{0, 3}: 0.1, {1, 2}: 0.1,
	}
	lookup := func(i, j int) float64 {
		if i > j {
			i, j = j, i
		}
		return scoreTable[[2]int{i, j}]
	}

	selected := []SelectedPair{{I: 0, J: 1, Score: 0.9}, {I: 2, J: 3, Score: 0.9}}
	improved := TwoOptImprove(selected, lookup)

	var total float64
	for _, s := range improved {
		total += s.Score
	}
	assert.InDelta(t, 1.8, total, 1e-9)
}
