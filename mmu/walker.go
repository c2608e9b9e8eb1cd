package mmu

import (
	"iter"

	"github.com/ezrec/nspemu/memory"
)

// CP15 control register bits used by translation.
const (
	CONTROL_MMU = 1 << 0 // M: MMU enable.
	CONTROL_S   = 1 << 8 // S: system protection.
	CONTROL_R   = 1 << 9 // R: ROM protection.

	CONTROL_TRANSLATION = CONTROL_MMU | CONTROL_S | CONTROL_R
)

// Access permission field values.
const (
	AP_SR     = 0 // Governed by the S and R control bits.
	AP_PRIV   = 1 // Privileged access only.
	AP_USERRO = 2 // User read only.
	AP_FULL   = 3 // Full access.
)

// Domain access control values.
const (
	DOMAIN_NONE    = 0 // Any access faults.
	DOMAIN_CLIENT  = 1 // Access permissions are checked.
	DOMAIN_MANAGER = 3 // Access permissions are not checked.
)

const (
	SECTION_SIZE = 1 << 20 // Section size.
	LARGE_SIZE   = 1 << 16 // Large page size.
	SMALL_SIZE   = 1 << 12 // Small page size.
	TINY_SIZE    = 1 << 10 // Tiny page size.
)

// Registers is the CP15 state that controls translation.
type Registers struct {
	Control      uint32 // c1, control.
	TTB          uint32 // c2, translation table base.
	DomainAccess uint32 // c3, domain access control.
}

// Enabled reports whether the MMU is on.
func (regs Registers) Enabled() bool {
	return regs.Control&CONTROL_MMU != 0
}

// Tables is the memory the page tables are read from.
type Tables interface {
	Arena() []byte
	Locate(pa uint32) (offset uint32, readOnly bool, ok bool)
}

// Walk is the outcome of a page table walk.
type Walk struct {
	PA       uint32 // Physical address.
	PageSize uint32 // Size of the page or section.
	Domain   uint32 // Domain of the mapping.
	AP       uint32 // Access permission field that applied.
	Status   uint32 // Fault status, only meaningful on a fault.

	tables [2]uint32 // Physical addresses of the descriptors read.
	count  int
}

// Descriptors returns the physical addresses of the descriptors read.
func (w *Walk) Descriptors() []uint32 {
	return w.tables[:w.count]
}

// Walker decodes ARMv5 page tables.
type Walker struct {
	Tables Tables
}

func (walker *Walker) fetch(pa uint32) (value uint32, ok bool) {
	offset, _, ok := walker.Tables.Locate(pa)
	if !ok {
		return
	}
	value = memory.Get(walker.Tables.Arena()[offset:], memory.WIDTH_32)
	return
}

// decode walks the tables without checking permissions. A non-zero
// w.Status with ok false reports a translation or external fault.
func (walker *Walker) decode(regs Registers, va uint32) (w Walk, ok bool) {
	l1 := regs.TTB&0xffffc000 | (va>>20)<<2
	w.tables[0] = l1
	w.count = 1

	entry, ok := walker.fetch(l1)
	if !ok {
		w.Status = STATUS_EXTERNAL_L1
		w.PageSize = SECTION_SIZE
		return
	}

	w.Domain = entry >> 5 & 0xf
	w.Status = w.Domain << 4

	var l2 uint32
	switch entry & 3 {
	case 0:
		w.Status += STATUS_TRANSLATION_SECTION
		w.PageSize = SECTION_SIZE
		ok = false
		return
	case 1: // Coarse
		l2 = entry&0xfffffc00 | (va>>12&0xff)<<2
		w.PageSize = SMALL_SIZE
	case 2: // Section
		w.AP = entry >> 10 & 3
		w.PageSize = SECTION_SIZE
		w.PA = entry&^uint32(SECTION_SIZE-1) | va&(SECTION_SIZE-1)
		return
	case 3: // Fine
		l2 = entry&0xfffff000 | (va>>10&0x3ff)<<2
		w.PageSize = TINY_SIZE
	}

	w.tables[1] = l2
	w.count = 2
	w.Status += 2

	entry, ok = walker.fetch(l2)
	if !ok {
		w.Status = w.Domain<<4 | STATUS_EXTERNAL_L2
		return
	}

	switch entry & 3 {
	case 0:
		w.Status += STATUS_TRANSLATION_SECTION
		ok = false
		return
	case 1: // Large
		w.AP = entry >> (4 + (va >> 13 & 6)) & 3
		w.PageSize = LARGE_SIZE
	case 2: // Small
		w.AP = entry >> (4 + (va >> 9 & 6)) & 3
		w.PageSize = SMALL_SIZE
	case 3: // Tiny
		w.AP = entry >> 4 & 3
		w.PageSize = TINY_SIZE
	}

	w.PA = entry&^(w.PageSize-1) | va&(w.PageSize-1)

	return
}

// permitted checks domain access and access permissions, returning the
// status increment of the fault when the access is refused.
func permitted(regs Registers, domain uint32, ap uint32, writing bool, user bool) (fault uint32) {
	switch regs.DomainAccess >> (domain * 2) & 3 {
	case DOMAIN_MANAGER:
		return
	case DOMAIN_CLIENT:
	default:
		fault = STATUS_DOMAIN_SECTION
		return
	}

	switch ap {
	case AP_SR:
		switch regs.Control >> 8 & 3 {
		case 1: // S
			if user || writing {
				fault = STATUS_PERMISSION_SECTION
			}
		case 2: // R
			if writing {
				fault = STATUS_PERMISSION_SECTION
			}
		default:
			fault = STATUS_PERMISSION_SECTION
		}
	case AP_PRIV:
		if user {
			fault = STATUS_PERMISSION_SECTION
		}
	case AP_USERRO:
		if user && writing {
			fault = STATUS_PERMISSION_SECTION
		}
	}

	return
}

// Walk translates va for the given access and privilege.
func (walker *Walker) Walk(regs Registers, va uint32, writing bool, user bool) (w Walk, err error) {
	if !regs.Enabled() {
		w.PA = va
		w.PageSize = SECTION_SIZE
		w.AP = AP_FULL
		return
	}

	w, ok := walker.decode(regs, va)
	if !ok {
		err = &Fault{Addr: va, Status: w.Status, Kind: faultKind(w.Status), Write: writing}
		return
	}

	if inc := permitted(regs, w.Domain, w.AP, writing, user); inc != 0 {
		w.Status += inc
		err = &Fault{Addr: va, Status: w.Status, Kind: faultKind(w.Status), Write: writing}
		return
	}

	return
}

// Mapping is a contiguous run of virtual addresses with the same
// attributes.
type Mapping struct {
	VA     uint32 // First virtual address.
	PA     uint32 // First physical address.
	Size   uint32 // Size in bytes.
	AP     uint32 // Access permission field.
	Domain uint32 // Domain.
}

func (m *Mapping) follows(n Mapping) bool {
	return m.VA+m.Size == n.VA && m.PA+m.Size == n.PA &&
		m.AP == n.AP && m.Domain == n.Domain && m.Size+n.Size > m.Size
}

// Mappings iterates over the valid mappings of the tables, coalescing
// adjacent runs. Nothing is yielded while the MMU is disabled.
func (walker *Walker) Mappings(regs Registers) iter.Seq[Mapping] {
	return func(yield func(Mapping) bool) {
		if !regs.Enabled() {
			return
		}

		var run Mapping
		var have bool

		va := uint64(0)
		for va < 1<<32 {
			w, ok := walker.decode(regs, uint32(va))

			step := uint64(TINY_SIZE)
			if w.PageSize == SECTION_SIZE {
				step = SECTION_SIZE
			} else if !ok && w.count == 2 && w.PageSize == SMALL_SIZE {
				step = SMALL_SIZE
			}

			if ok {
				m := Mapping{VA: uint32(va), PA: w.PA, Size: uint32(step), AP: w.AP, Domain: w.Domain}
				if have && run.follows(m) {
					run.Size += m.Size
				} else {
					if have && !yield(run) {
						return
					}
					run = m
					have = true
				}
			}

			va += step
		}

		if have {
			yield(run)
		}
	}
}
