package scheduler

import "math"

// TwoOptImprove implements spec §4.5 Step 4: two passes over all
// unordered pairs of selected pairs, each comparing the three possible
// perfect matchings of their four target indices (keep both pairs as-is;
// swap so target I of each pair trades places; pair the I's together and
// the J's together), keeping whichever scores highest. When "keep" wins,
// the pre-swap sum is recorded so the second pass can skip recomputing
// an already-settled combination.
//
// scoreOf looks up score(targets[i].JobID, targets[j].JobID); a missing
// score is treated as 0, never improving over keep.
func TwoOptImprove(selected []SelectedPair, scoreOf func(i, j int) float64) []SelectedPair {
	out := append([]SelectedPair(nil), selected...)
	skip := make(map[uint64]struct{})

	for pass := 0; pass < 2; pass++ {
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				a1, b1 := out[i].I, out[i].J
				a2, b2 := out[j].I, out[j].J

				keepSum := scoreOf(a1, b1) + scoreOf(a2, b2)
				key := math.Float64bits(keepSum)
				if pass == 1 {
					if _, skipped := skip[key]; skipped {
						continue
					}
				}

				swapFirst := scoreOf(a2, b1) + scoreOf(a1, b2)
				crosswise := scoreOf(a1, a2) + scoreOf(b1, b2)

				best := keepSum
				bestCfg := 0
				if swapFirst > best {
					best = swapFirst
					bestCfg = 1
				}
				if crosswise > best {
					best = crosswise
					bestCfg = 2
				}

				switch bestCfg {
				case 0:
					skip[key] = struct{}{}
				case 1:
					out[i] = SelectedPair{I: a2, J: b1, Score: scoreOf(a2, b1)}
					out[j] = SelectedPair{I: a1, J: b2, Score: scoreOf(a1, b2)}
				case 2:
					out[i] = SelectedPair{I: a1, J: a2, Score: scoreOf(a1, a2)}
					out[j] = SelectedPair{I: b1, J: b2, Score: scoreOf(b1, b2)}
				}
			}
		}
	}

	sortSelectedDescending(out)
	return out
}
