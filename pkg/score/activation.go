package score

import "github.com/ja7ad/smtsched/pkg/types"

// activation implements spec §4.4's per-resource-type activation
// function: the amount of contention two usage fractions create on a
// shared resource of the given type.
func activation(t types.ResourceType, uA, uB float64) float64 {
	switch t {
	case types.Parallel:
		return uA * uB * (uA + uB) / 2
	case types.Sequential, types.Port:
		fallthrough
	default:
		if v := uA + uB - 1; v > 0 {
			return v
		}
		return 0
	}
}
