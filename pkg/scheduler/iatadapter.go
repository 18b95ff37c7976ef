package scheduler

import (
	"iter"

	"github.com/ja7ad/smtsched/pkg/iat"
)

// iatTable is the subset of *iat.Table TableAttributionSource wraps.
type iatTable interface {
	ResetAll()
	Snapshots() iter.Seq[iat.Snapshot]
}

// TableAttributionSource adapts *iat.Table to AttributionSource. This is
// the only file of the scheduler package that imports iat; the empirical
// validation loop in Step 6 sees only the AttributionSource interface.
type TableAttributionSource struct {
	table iatTable
}

func NewTableAttributionSource(table *iat.Table) *TableAttributionSource {
	return &TableAttributionSource{table: table}
}

func (a *TableAttributionSource) ResetAll() { a.table.ResetAll() }

func (a *TableAttributionSource) ActiveSnapshots() []ObservedSlot {
	var out []ObservedSlot
	for s := range a.table.Snapshots() {
		out = append(out, ObservedSlot{
			PGID:         s.PGID,
			JobID:        s.JobID,
			Cycles:       s.Cycles,
			Instructions: s.Instructions,
		})
	}
	return out
}
