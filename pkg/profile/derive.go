package profile

import (
	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/mathutil"
	"github.com/ja7ad/smtsched/pkg/types"
)

// rowKey identifies one (feature, run_type, pressure) slot in a job's
// measurement rows; buildWCV keeps only the most recent sample per slot.
type rowKey struct {
	feature  string
	runType  docstore.RunType
	pressure docstore.Pressure
}

// buildWCV derives a Workload Characteristic Vector from the raw
// measurement rows recorded for one job (spec §6's measurement schema),
// in catalog order. It fails with ErrNotFound if the low-pressure
// workload baseline is missing for any catalog resource; a missing solo
// baseline or L3 probe degrades gracefully rather than failing, matching
// the WCV-level edge cases of spec §4.4 (zero single_ipc, default
// scale_factor).
func buildWCV(jobID types.JobID, catalog []types.Resource, docs []docstore.MeasurementDoc) (types.WCV, error) {
	latest := make(map[rowKey]docstore.MeasurementDoc, len(docs))
	for _, d := range docs {
		k := rowKey{feature: d.Feature, runType: docstore.RunType(d.RunType), pressure: docstore.Pressure(d.Pressure)}
		if prev, ok := latest[k]; !ok || d.Timestamp >= prev.Timestamp {
			latest[k] = d
		}
	}

	get := func(feature string, rt docstore.RunType, p docstore.Pressure) (float64, bool) {
		d, ok := latest[rowKey{feature: feature, runType: rt, pressure: p}]
		return d.IPC, ok
	}

	n := len(catalog)
	wcv := types.WCV{
		JobID:        jobID,
		Sensitivity:  make([]float64, n),
		Intensity:    make([]float64, n),
		Usage:        make([]float64, n),
		BaseSlowdown: make([]float64, n),
		ScaleFactor:  1.0,
	}

	if singleIPC, ok := get(docstore.SingleFeature, docstore.RunTypeWorkload, docstore.PressureSolo); ok {
		wcv.SingleIPC = singleIPC
	}

	for i, r := range catalog {
		workloadLow, ok := get(r.Name, docstore.RunTypeWorkload, docstore.PressureLow)
		if !ok {
			return types.WCV{}, ErrNotFound
		}

		if workloadHigh, ok := get(r.Name, docstore.RunTypeWorkload, docstore.PressureHigh); ok {
			wcv.Sensitivity[i] = mathutil.Clamp01(workloadLow - workloadHigh)
		}

		injectorSolo, soloOK := get(r.Name, docstore.RunTypeInjector, docstore.PressureSolo)
		injectorCoRun, coRunOK := get(r.Name, docstore.RunTypeInjector, docstore.PressureLow)
		if soloOK && coRunOK {
			intensity := injectorSolo - injectorCoRun
			if intensity > 0 {
				wcv.Intensity[i] = intensity
			}
		}

		wcv.BaseSlowdown[i] = mathutil.SafeDiv(wcv.SingleIPC, workloadLow)

		// usage isn't a directly-sampled counter in the measurement schema;
		// approximate it from how far the workload's own IPC already drops
		// under minimal (low-pressure) contention relative to its solo run.
		wcv.Usage[i] = mathutil.Clamp01(1 - mathutil.SafeDiv(workloadLow, wcv.SingleIPC))
	}

	if l3co, ok := get(docstore.L3Feature, docstore.RunTypeWorkload, docstore.PressureHigh); ok && wcv.SingleIPC > 0 {
		wcv.ScaleFactor = mathutil.SafeDiv(l3co, wcv.SingleIPC)
	}

	return wcv, nil
}
