// Package iat provides the IPC Attribution Table: a fixed-capacity slot
// array that accumulates per-process-group retired cycles and
// instructions, mirrored into a lock-free seqlock-protected snapshot
// region for user-space readers.
//
// Writer side (Table.OnSwitch) is meant to run on whatever detects a
// context-switch boundary — in this repo, Poller, which samples /proc
// rather than hooking a real scheduler (see SPEC_FULL.md §4.1). Reader
// side (Table.Snapshots) never blocks on a mutex: it spins against each
// slot's seqlock sequence number until it observes a stable, even value.
package iat
