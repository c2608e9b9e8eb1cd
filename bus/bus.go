// Package bus dispatches physical accesses to memory or to memory mapped
// devices.
package bus

import (
	"iter"
	"log"
	"slices"
	"sort"

	"github.com/ezrec/nspemu/memory"
)

const (
	OPEN_BUS = uint32(0xffffffff) // Value read from unmapped addresses.
)

// Device is a memory mapped peripheral with a 32-bit register file.
// Addresses are offsets from the start of the mapping.
type Device interface {
	Read(addr uint32) uint32
	Write(addr uint32, value uint32)
}

// WidthDevice is a Device that handles 8 and 16 bit accesses natively.
type WidthDevice interface {
	Device
	ReadWidth(addr uint32, width memory.Width) uint32
	WriteWidth(addr uint32, width memory.Width, value uint32)
}

// Memory is the arena backed part of the physical address space.
type Memory interface {
	Arena() []byte
	Locate(pa uint32) (offset uint32, readOnly bool, ok bool)
}

// Mapping is a device range on the bus.
type Mapping struct {
	Name   string // Device name.
	Start  uint32 // First physical address.
	Size   uint32 // Size in bytes.
	Device Device // Device handling the range.
}

// Contains reports whether pa lies in the mapping.
func (m *Mapping) Contains(pa uint32) bool {
	return pa >= m.Start && pa-m.Start < m.Size
}

// Bus is the physical bus. Memory is consulted first, then device
// mappings; everything else is open bus.
type Bus struct {
	Verbose bool         // If set, logs unmapped accesses.
	Memory  Memory       // Arena backed memory, may be nil.
	OnWrite func(uint32) // Called after every write to memory.

	mappings []Mapping
	sealed   bool
}

var _ Memory = (*Bus)(nil)

// New creates a bus over mem.
func New(mem Memory) (b *Bus) {
	b = &Bus{
		Memory: mem,
	}
	return
}

// Map adds a device range.
func (b *Bus) Map(name string, start uint32, size uint32, dev Device) (err error) {
	if b.sealed {
		err = ErrBusSealed
		return
	}

	if size == 0 || uint64(start)+uint64(size) > 1<<32 {
		err = ErrMapping{Name: name, Start: start, Err: ErrRangeInvalid}
		return
	}

	m := Mapping{Name: name, Start: start, Size: size, Device: dev}
	for _, other := range b.mappings {
		if start < other.Start+other.Size && other.Start < start+size {
			err = ErrMapping{Name: name, Start: start, Err: ErrRangeOverlap}
			return
		}
	}

	pos, _ := slices.BinarySearchFunc(b.mappings, start, func(m Mapping, start uint32) int {
		switch {
		case m.Start < start:
			return -1
		case m.Start > start:
			return 1
		}
		return 0
	})
	b.mappings = slices.Insert(b.mappings, pos, m)

	return
}

// Seal prevents any further mapping.
func (b *Bus) Seal() {
	b.sealed = true
}

// Mappings iterates over the device mappings in address order.
func (b *Bus) Mappings() iter.Seq[Mapping] {
	return slices.Values(b.mappings)
}

// Lookup finds the mapping that contains pa.
func (b *Bus) Lookup(pa uint32) (m *Mapping, ok bool) {
	n := sort.Search(len(b.mappings), func(i int) bool {
		return b.mappings[i].Start+b.mappings[i].Size-1 >= pa
	})
	if n < len(b.mappings) && b.mappings[n].Contains(pa) {
		m = &b.mappings[n]
		ok = true
	}
	return
}

// Arena returns the memory backing store.
func (b *Bus) Arena() []byte {
	if b.Memory == nil {
		return nil
	}
	return b.Memory.Arena()
}

// Locate finds the arena offset of pa.
func (b *Bus) Locate(pa uint32) (offset uint32, readOnly bool, ok bool) {
	if b.Memory == nil {
		return
	}
	return b.Memory.Locate(pa)
}

func laneMask(width memory.Width) uint32 {
	return uint32((uint64(1) << (8 * width)) - 1)
}

// Read performs a physical read.
func (b *Bus) Read(pa uint32, width memory.Width) (value uint32) {
	pa &^= width.Mask()

	if offset, _, ok := b.Locate(pa); ok {
		value = memory.Get(b.Memory.Arena()[offset:], width)
		return
	}

	m, ok := b.Lookup(pa)
	if !ok {
		if b.Verbose {
			log.Printf("bus: open read%d 0x%08x", width*8, pa)
		}
		value = OPEN_BUS & laneMask(width)
		return
	}

	addr := pa - m.Start
	if wd, ok := m.Device.(WidthDevice); ok {
		value = wd.ReadWidth(addr, width) & laneMask(width)
		return
	}

	shift := (addr & 3) * 8
	value = (m.Device.Read(addr&^3) >> shift) & laneMask(width)

	return
}

// Write performs a physical write. Narrow writes to word devices are
// zero extended into their byte lane of the aligned word.
func (b *Bus) Write(pa uint32, width memory.Width, value uint32) {
	pa &^= width.Mask()
	value &= laneMask(width)

	if offset, readOnly, ok := b.Locate(pa); ok {
		if readOnly {
			if b.Verbose {
				log.Printf("bus: rom write%d 0x%08x = 0x%x", width*8, pa, value)
			}
			return
		}
		memory.Put(b.Memory.Arena()[offset:], width, value)
		if b.OnWrite != nil {
			b.OnWrite(pa)
		}
		return
	}

	m, ok := b.Lookup(pa)
	if !ok {
		if b.Verbose {
			log.Printf("bus: open write%d 0x%08x = 0x%x", width*8, pa, value)
		}
		return
	}

	addr := pa - m.Start
	if wd, ok := m.Device.(WidthDevice); ok {
		wd.WriteWidth(addr, width, value)
		return
	}

	shift := (addr & 3) * 8
	m.Device.Write(addr&^3, value<<shift)
}
