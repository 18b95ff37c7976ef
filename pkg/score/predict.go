package score

import (
	"github.com/ja7ad/smtsched/pkg/mathutil"
	"github.com/ja7ad/smtsched/pkg/types"
)

// minBaseSlowdown is f[0] of spec §4.4: the smallest per-resource base
// slowdown a workload has recorded.
func minBaseSlowdown(w types.WCV) float64 {
	if len(w.BaseSlowdown) == 0 {
		return 0
	}
	m := w.BaseSlowdown[0]
	for _, v := range w.BaseSlowdown[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// predictSlowdown computes ŝ_A, the predicted slowdown of workload a
// when co-located with b (spec §4.4's directional feature vector).
func predictSlowdown(model Model, catalog []types.Resource, a, b types.WCV) float64 {
	s := model.Intercept + model.Coefficients[0]*minBaseSlowdown(a)
	for r, res := range catalog {
		act := activation(res.Type, a.Usage[r], b.Usage[r])
		f := a.Sensitivity[r] * b.Intensity[r] * act
		s += model.Coefficients[1+r] * f
	}
	return s
}

// compat computes compat_A(B) = scale_factor_A * (1 - ŝ_A), clamped to
// [0,1] (spec §4.4).
func compat(model Model, catalog []types.Resource, a, b types.WCV) float64 {
	sA := predictSlowdown(model, catalog, a, b)
	return mathutil.Clamp01(a.ScaleFactor * (1 - sA))
}

// pairScore computes the symmetric score(A,B) = compat_A(B) + compat_B(A)
// (invariant I-4: score(A,B) == score(B,A) by construction).
func pairScore(model Model, catalog []types.Resource, a, b types.WCV) float64 {
	return compat(model, catalog, a, b) + compat(model, catalog, b, a)
}
