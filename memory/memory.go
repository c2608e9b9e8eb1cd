// Package memory provides the physical memory arena of the emulated machine.
//
// Every RAM and ROM region lives in a single arena slice. Translation cache
// pointer entries are arena offsets, so the arena never moves once created.
package memory

import (
	"encoding/binary"
	"iter"
	"log"
	"slices"
)

const (
	REGION_ALIGN = 0x400 // Regions are aligned to the smallest page size.
)

// Width is the size of a memory access in bytes.
type Width uint32

const (
	WIDTH_8  = Width(1) // Byte access.
	WIDTH_16 = Width(2) // Halfword access.
	WIDTH_32 = Width(4) // Word access.
)

// Mask returns the address bits that select a byte within the access.
func (w Width) Mask() uint32 {
	return uint32(w) - 1
}

// Get decodes a little endian value of width w from buf.
func Get(buf []byte, w Width) uint32 {
	switch w {
	case WIDTH_8:
		return uint32(buf[0])
	case WIDTH_16:
		return uint32(binary.LittleEndian.Uint16(buf))
	case WIDTH_32:
		return binary.LittleEndian.Uint32(buf)
	}
	panic("memory: bad width")
}

// Put encodes a little endian value of width w into buf.
func Put(buf []byte, w Width, value uint32) {
	switch w {
	case WIDTH_8:
		buf[0] = uint8(value)
	case WIDTH_16:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case WIDTH_32:
		binary.LittleEndian.PutUint32(buf, value)
	default:
		panic("memory: bad width")
	}
}

// Region is a block of physical memory backed by the arena.
type Region struct {
	Name     string // Region name, e.g. "sdram".
	Base     uint32 // Physical base address.
	Size     uint32 // Size in bytes.
	ReadOnly bool   // Guest writes are not allowed (ROM).

	offset uint32 // Offset in the arena.
}

// Contains reports whether pa lies inside the region.
func (r *Region) Contains(pa uint32) bool {
	return pa >= r.Base && pa-r.Base < r.Size
}

// Physical is the physical memory of the machine.
type Physical struct {
	Verbose bool   // If set, logs region changes.
	OnRemap func() // Called after the physical layout changed.

	arena   []byte
	regions []Region
}

// New allocates the arena for the regions.
func New(regions ...Region) (mem *Physical, err error) {
	mem = &Physical{}

	var size uint64
	for _, r := range regions {
		if r.Base%REGION_ALIGN != 0 || r.Size%REGION_ALIGN != 0 || r.Size == 0 {
			err = ErrRegion{Name: r.Name, Err: ErrRegionAlign}
			return
		}
		if uint64(r.Base)+uint64(r.Size) > 1<<32 {
			err = ErrRegion{Name: r.Name, Err: ErrRegionRange}
			return
		}
		r.offset = uint32(size)
		size += uint64(r.Size)
		if size > 1<<32 {
			err = ErrRegion{Name: r.Name, Err: ErrRegionRange}
			return
		}
		mem.regions = append(mem.regions, r)
	}

	err = mem.checkOverlap()
	if err != nil {
		return
	}

	mem.arena = make([]byte, size)

	return
}

func (mem *Physical) checkOverlap() (err error) {
	for n, a := range mem.regions {
		for _, b := range mem.regions[n+1:] {
			if a.Base < b.Base+b.Size && b.Base < a.Base+a.Size {
				err = ErrRegion{Name: b.Name, Err: ErrRegionOverlap}
				return
			}
		}
	}
	return
}

// Arena returns the backing store of all regions.
func (mem *Physical) Arena() []byte {
	return mem.arena
}

// Regions iterates over the memory regions.
func (mem *Physical) Regions() iter.Seq[Region] {
	return slices.Values(mem.regions)
}

// Region finds a region by name.
func (mem *Physical) Region(name string) (region Region, ok bool) {
	for _, r := range mem.regions {
		if r.Name == name {
			region = r
			ok = true
			return
		}
	}
	return
}

// Locate returns the arena offset backing physical address pa.
func (mem *Physical) Locate(pa uint32) (offset uint32, readOnly bool, ok bool) {
	for n := range mem.regions {
		r := &mem.regions[n]
		if r.Contains(pa) {
			offset = r.offset + (pa - r.Base)
			readOnly = r.ReadOnly
			ok = true
			return
		}
	}
	return
}

// Bytes returns the arena bytes backing [pa, pa+size) when the range lies
// in a single region.
func (mem *Physical) Bytes(pa uint32, size uint32) (buf []byte, ok bool) {
	offset, _, ok := mem.Locate(pa)
	if !ok || size == 0 {
		return
	}
	end, _, end_ok := mem.Locate(pa + size - 1)
	if !end_ok || end != offset+size-1 {
		ok = false
		return
	}
	buf = mem.arena[offset : offset+size]
	return
}

// Load copies data into memory at pa, ignoring the read-only flag.
func (mem *Physical) Load(pa uint32, data []byte) (err error) {
	buf, ok := mem.Bytes(pa, uint32(len(data)))
	if !ok {
		err = ErrLoadRange
		return
	}
	copy(buf, data)
	return
}

// Remap moves a region to a new physical base address.
func (mem *Physical) Remap(name string, base uint32) (err error) {
	for n := range mem.regions {
		r := &mem.regions[n]
		if r.Name != name {
			continue
		}
		if base%REGION_ALIGN != 0 || uint64(base)+uint64(r.Size) > 1<<32 {
			err = ErrRegion{Name: name, Err: ErrRegionAlign}
			return
		}
		old := r.Base
		r.Base = base
		err = mem.checkOverlap()
		if err != nil {
			r.Base = old
			return
		}
		if mem.Verbose {
			log.Printf("memory: remap %v 0x%08x -> 0x%08x", name, old, base)
		}
		if mem.OnRemap != nil {
			mem.OnRemap()
		}
		return
	}

	err = ErrRegion{Name: name, Err: ErrRegionMissing}
	return
}

// Clear zeroes all writable regions.
func (mem *Physical) Clear() {
	for _, r := range mem.regions {
		if !r.ReadOnly {
			clear(mem.arena[r.offset : r.offset+r.Size])
		}
	}
}
