// Package docstore is the embedded document database behind the
// Profile Data Loader and Score Engine: a bbolt file holding three
// buckets, "measurement" (raw per-job IPC samples), "combination"
// (pairwise samples written by the offline model trainer, not read at
// runtime) and "models" (the trained linear model used by scoring).
//
// Documents are stored JSON-encoded via goccy/go-json, matching the
// wire format the offline profiling pipeline already emits.
package docstore
