//go:build linux

package iat

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// regionByteSize is the on-disk/mmap layout size: an 8-byte count, the
// active-mask words, then MaxSlots snapshot slots encoded as
// seq,pgid,job_id,worker_num (4 bytes each) + cycles,instructions (8 bytes
// each) = 32 bytes per slot, matching the §6 wire layout.
const (
	snapshotSlotWire = 4 + 4 + 4 + 4 + 8 + 8
	regionByteSize   = 8 + len(activeMask{}.words)*8 + types_MaxSlots*snapshotSlotWire
)

// types_MaxSlots avoids importing pkg/types just for the constant in this
// arithmetic; must be kept equal to types.MaxSlots by hand.
const types_MaxSlots = 4096

// MappedRegion is an mmap'd byte-for-byte export of a Region, sized and
// aligned per spec §6, so an external process holding the same file
// descriptor can read attribution data without linking this package. Its
// bytes change only when Sync is called: publishing to the Region does not
// touch the mapping, and the smtsched daemon does not create or sync a
// MappedRegion.
type MappedRegion struct {
	f    *os.File
	data []byte
}

// MapRegionFile creates (or truncates) path to regionByteSize and maps it
// PROT_READ|PROT_WRITE, MAP_SHARED so other processes can map it read-only.
func MapRegionFile(path string) (*MappedRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("iat: open region file: %w", err)
	}
	if err := f.Truncate(int64(regionByteSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("iat: size region file: %w", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, regionByteSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("iat: mmap region file: %w", err)
	}
	return &MappedRegion{f: f, data: data}, nil
}

// Close unmaps and closes the backing file.
func (m *MappedRegion) Close() error {
	if err := unix.Munmap(m.data); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}

// Sync serializes r's current state into the mapped bytes in the §6 wire
// order: count, active-mask words, then each snapshot slot.
func (m *MappedRegion) Sync(r *Region) {
	off := 0
	binary.LittleEndian.PutUint64(m.data[off:], uint64(r.Count()))
	off += 8
	for i := range r.active.words {
		binary.LittleEndian.PutUint64(m.data[off:], r.active.words[i].Load())
		off += 8
	}
	for i := range r.Slots {
		s := &r.Slots[i]
		binary.LittleEndian.PutUint32(m.data[off:], s.Seq.Load())
		off += 4
		binary.LittleEndian.PutUint32(m.data[off:], uint32(s.PGID.Load()))
		off += 4
		binary.LittleEndian.PutUint32(m.data[off:], uint32(s.JobID.Load()))
		off += 4
		binary.LittleEndian.PutUint32(m.data[off:], uint32(s.WorkerNum.Load()))
		off += 4
		binary.LittleEndian.PutUint64(m.data[off:], s.Cycles.Load())
		off += 8
		binary.LittleEndian.PutUint64(m.data[off:], s.Instructions.Load())
		off += 8
	}
}
