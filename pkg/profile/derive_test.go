package profile

import (
	"testing"

	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []types.Resource{
	{Name: "l3_cache", Type: types.Parallel},
	{Name: "issue_queue", Type: types.Sequential},
}

func measRow(jobID int64, feature string, rt docstore.RunType, p docstore.Pressure, ipc float64, ts int64) docstore.MeasurementDoc {
	return docstore.MeasurementDoc{JobID: jobID, Feature: feature, RunType: string(rt), Pressure: string(p), IPC: ipc, Timestamp: ts}
}

func TestBuildWCV_FullDocumentSet(t *testing.T) {
	docs := []docstore.MeasurementDoc{
		measRow(1, docstore.SingleFeature, docstore.RunTypeWorkload, docstore.PressureSolo, 2.0, 1),
		measRow(1, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.8, 1),
		measRow(1, "l3_cache", docstore.RunTypeWorkload, docstore.PressureHigh, 1.2, 1),
		measRow(1, "l3_cache", docstore.RunTypeInjector, docstore.PressureSolo, 3.0, 1),
		measRow(1, "l3_cache", docstore.RunTypeInjector, docstore.PressureLow, 2.5, 1),
		measRow(1, "issue_queue", docstore.RunTypeWorkload, docstore.PressureLow, 1.9, 1),
		measRow(1, docstore.L3Feature, docstore.RunTypeWorkload, docstore.PressureHigh, 1.0, 1),
	}

	wcv, err := buildWCV(1, catalog, docs)
	require.NoError(t, err)

	assert.Equal(t, 2.0, wcv.SingleIPC)
	assert.InDelta(t, 0.6, wcv.Sensitivity[0], 1e-9, "l3_cache sensitivity = 1.8 - 1.2")
	assert.InDelta(t, 0.5, wcv.Intensity[0], 1e-9, "l3_cache intensity = 3.0 - 2.5")
	assert.InDelta(t, 2.0/1.8, wcv.BaseSlowdown[0], 1e-9)
	assert.InDelta(t, 0.5, wcv.ScaleFactor, 1e-9, "scale_factor = l3co_ipc / single_ipc")

	// issue_queue has no high-pressure or injector rows: sensitivity and
	// intensity default to 0 rather than failing the whole profile.
	assert.Equal(t, 0.0, wcv.Sensitivity[1])
	assert.Equal(t, 0.0, wcv.Intensity[1])
}

func TestBuildWCV_MissingRequiredResourceFails(t *testing.T) {
	docs := []docstore.MeasurementDoc{
		measRow(1, docstore.SingleFeature, docstore.RunTypeWorkload, docstore.PressureSolo, 2.0, 1),
		measRow(1, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.8, 1),
		// issue_queue low-pressure baseline never recorded.
	}

	_, err := buildWCV(1, catalog, docs)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildWCV_MissingSingleIPCDegradesGracefully(t *testing.T) {
	docs := []docstore.MeasurementDoc{
		measRow(1, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.8, 1),
		measRow(1, "issue_queue", docstore.RunTypeWorkload, docstore.PressureLow, 1.9, 1),
	}

	wcv, err := buildWCV(1, catalog, docs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, wcv.SingleIPC)
	assert.False(t, wcv.HasSingleIPC())
	assert.Equal(t, 0.0, wcv.BaseSlowdown[0], "SafeDiv against zero single_ipc yields 0, not NaN/Inf")
}

func TestBuildWCV_LatestSampleWinsOnDuplicateRows(t *testing.T) {
	docs := []docstore.MeasurementDoc{
		measRow(1, docstore.SingleFeature, docstore.RunTypeWorkload, docstore.PressureSolo, 3.0, 1),
		measRow(1, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.0, 1),
		measRow(1, "l3_cache", docstore.RunTypeWorkload, docstore.PressureLow, 1.5, 5),
		measRow(1, "issue_queue", docstore.RunTypeWorkload, docstore.PressureLow, 1.0, 1),
	}

	wcv, err := buildWCV(1, catalog, docs)
	require.NoError(t, err)
	assert.InDelta(t, 3.0/1.5, wcv.BaseSlowdown[0], 1e-9, "the ts=5 row (1.5) must win over the ts=1 row (1.0)")
}
