package score

import (
	"bytes"
	"testing"

	"github.com/ja7ad/smtsched/pkg/docstore"
	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []types.Resource{
	{Name: "l3_cache", Type: types.Parallel},
	{Name: "issue_queue", Type: types.Sequential},
}

func validModelDoc() docstore.ModelDoc {
	return docstore.ModelDoc{
		Features:     []string{"base", "l3_cache", "issue_queue"},
		Coefficients: []float64{0.1, -0.3, -0.2},
		Intercept:    0.05,
	}
}

func wcv(jobID types.JobID, singleIPC float64) types.WCV {
	return types.WCV{
		JobID:        jobID,
		Sensitivity:  []float64{0.4, 0.2},
		Intensity:    []float64{0.3, 0.1},
		Usage:        []float64{0.6, 0.5},
		BaseSlowdown: []float64{1.2, 1.1},
		SingleIPC:    singleIPC,
		ScaleFactor:  0.9,
	}
}

func TestModelLoad_RejectsMismatchedFeatureOrder(t *testing.T) {
	e := New(testCatalog)
	bad := validModelDoc()
	bad.Features = []string{"base", "issue_queue", "l3_cache"} // swapped
	assert.ErrorIs(t, e.ModelLoad(bad), ErrFeatureMismatch)
}

func TestModelLoad_RejectsWrongLength(t *testing.T) {
	e := New(testCatalog)
	bad := validModelDoc()
	bad.Features = bad.Features[:2]
	bad.Coefficients = bad.Coefficients[:2]
	assert.ErrorIs(t, e.ModelLoad(bad), ErrFeatureMismatch)
}

func TestAddWorkload_RequiresModel(t *testing.T) {
	e := New(testCatalog)
	assert.ErrorIs(t, e.AddWorkload(1, wcv(1, 2.0)), ErrNoModel)
}

func TestAddWorkload_ProducesSelfPairAndIsSymmetric(t *testing.T) {
	e := New(testCatalog)
	require.NoError(t, e.ModelLoad(validModelDoc()))

	require.NoError(t, e.AddWorkload(1, wcv(1, 2.0)))
	selfScore, ok := e.Score(1, 1)
	require.True(t, ok, "self-pair must be published on first admission")
	assert.Greater(t, selfScore, 0.0)

	require.NoError(t, e.AddWorkload(2, wcv(2, 3.0)))
	s12, ok := e.Score(1, 2)
	require.True(t, ok)
	s21, ok := e.Score(2, 1)
	require.True(t, ok)
	assert.Equal(t, s12, s21, "score(A,B) must equal score(B,A) (invariant I-4)")
}

func TestScore_UnknownPairNotFound(t *testing.T) {
	e := New(testCatalog)
	require.NoError(t, e.ModelLoad(validModelDoc()))
	_, ok := e.Score(1, 2)
	assert.False(t, ok)
}

func TestSingleIPC_ZeroExcludesFromNormalization(t *testing.T) {
	e := New(testCatalog)
	require.NoError(t, e.ModelLoad(validModelDoc()))
	require.NoError(t, e.AddWorkload(1, wcv(1, 0)))

	ipc, ok := e.SingleIPC(1)
	assert.Equal(t, 0.0, ipc)
	assert.False(t, ok, "zero single_ipc must be excluded from throughput normalization")

	// but its score entries still exist so placement can still occur.
	_, scored := e.Score(1, 1)
	assert.True(t, scored)
}

func TestScoreErr_UnknownJobReportsErrUnknownJob(t *testing.T) {
	e := New(testCatalog)
	require.NoError(t, e.ModelLoad(validModelDoc()))
	require.NoError(t, e.AddWorkload(1, wcv(1, 2.0)))

	_, err := e.ScoreErr(1, 2)
	assert.ErrorIs(t, err, ErrUnknownJob)

	s, err := e.ScoreErr(1, 1)
	require.NoError(t, err)
	assert.Greater(t, s, 0.0)
}

func TestPrintScoreboard_DescendingOrder(t *testing.T) {
	e := New(testCatalog)
	require.NoError(t, e.ModelLoad(validModelDoc()))
	require.NoError(t, e.AddWorkload(1, wcv(1, 2.0)))
	require.NoError(t, e.AddWorkload(2, wcv(2, 2.0)))

	var buf bytes.Buffer
	e.PrintScoreboard(&buf)
	assert.Contains(t, buf.String(), "JOB_A")
	assert.NotEmpty(t, buf.String())
}
