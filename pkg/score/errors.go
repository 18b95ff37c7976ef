package score

import "errors"

var (
	// ErrFeatureMismatch is returned by ModelLoad when the model
	// document's feature list doesn't line up with the resource catalog.
	ErrFeatureMismatch = errors.New("score: model feature list does not match resource catalog")

	// ErrNoModel is returned by AddWorkload before a model has been
	// loaded.
	ErrNoModel = errors.New("score: no model loaded")

	// ErrUnknownJob is returned when ScoreErr is asked about a job_id that
	// was never added.
	ErrUnknownJob = errors.New("score: unknown job_id")
)
