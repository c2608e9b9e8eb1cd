// Package cache implements the address translation cache consulted on every
// virtual memory access.
//
// The cache holds one entry per 1KiB virtual page and access direction. An
// entry is either a pointer entry (the virtual address plus the entry is an
// offset into the physical memory arena), a physical entry (the virtual
// address plus the entry is a physical address that must go through the bus),
// or invalid. The packed layout never leaves this package.
package cache

import (
	"iter"
)

const (
	PAGE_SHIFT  = 10                            // 1KiB pages, the smallest ARM tiny page.
	PAGE_SIZE   = 1 << PAGE_SHIFT               // Bytes per cache page.
	NUM_ENTRIES = ((1 << 32) >> PAGE_SHIFT) * 2 // Read and write slot per page.
	VALID_MAX   = 1024                          // Entries valid at the same time.
	noSlot      = ^uint32(0)                    // Empty valid ring slot.
	pageMask    = ^uint32(PAGE_SIZE - 1)        // Page base mask.
)

// Tag bits. The zero entry is invalid, so a freshly allocated table is
// entirely invalid without touching it.
const (
	tagPointer  = Entry(0x1)
	tagPhysical = Entry(0x2)
	tagMask     = Entry(0x3)
)

// Kind is the interpretation of a cache entry.
type Kind int

//go:generate go tool stringer -linecomment -type=Kind
const (
	KIND_INVALID  = Kind(0) // invalid
	KIND_POINTER  = Kind(1) // pointer
	KIND_PHYSICAL = Kind(2) // physical
)

// Entry is a packed translation cache entry.
type Entry uint32

// Kind returns the interpretation of the entry.
func (e Entry) Kind() Kind {
	switch {
	case e&tagPointer != 0:
		return KIND_POINTER
	case e&tagPhysical != 0:
		return KIND_PHYSICAL
	}
	return KIND_INVALID
}

// Pointer returns the arena offset of va when e is a pointer entry.
func (e Entry) Pointer(va uint32) (offset uint32, ok bool) {
	if e&tagPointer == 0 {
		return
	}
	offset = va + uint32(e&^tagMask)
	ok = true
	return
}

// Physical returns the physical address of va when e is a physical entry.
func (e Entry) Physical(va uint32) (pa uint32, ok bool) {
	if e&tagPhysical == 0 {
		return
	}
	pa = va + uint32(e&^tagMask)
	ok = true
	return
}

// Slot identifies a cache entry.
type Slot struct {
	VA      uint32 // Base address of the virtual page.
	Writing bool   // Write slot if set, read slot otherwise.
}

// Cache is the flat translation table plus the ring of valid entries.
type Cache struct {
	entry []Entry

	valid [VALID_MAX]uint32 // Indexes of entries that may be valid.
	next  int               // Next ring slot to fill.
}

// New creates an empty (all invalid) cache.
func New() (c *Cache) {
	c = &Cache{
		entry: make([]Entry, NUM_ENTRIES),
	}
	for n := range c.valid {
		c.valid[n] = noSlot
	}

	return
}

func index(va uint32, writing bool) (idx uint32) {
	idx = (va >> PAGE_SHIFT) * 2
	if writing {
		idx++
	}
	return
}

// Lookup returns the entry for the page holding va.
func (c *Cache) Lookup(va uint32, writing bool) Entry {
	return c.entry[index(va, writing)]
}

// SetPointer caches a pointer entry: va maps to arena offset.
// The low PAGE_SHIFT bits of va and offset must agree, otherwise nothing is
// cached and ok is false.
func (c *Cache) SetPointer(va uint32, writing bool, offset uint32) (ok bool) {
	diff := Entry(offset - va)
	if diff&^Entry(pageMask) != 0 {
		return
	}
	c.set(va, writing, diff|tagPointer)
	ok = true
	return
}

// SetPhysical caches a physical entry: va maps to pa.
// The low PAGE_SHIFT bits of va and pa must agree, otherwise nothing is
// cached and ok is false.
func (c *Cache) SetPhysical(va uint32, writing bool, pa uint32) (ok bool) {
	diff := Entry(pa - va)
	if diff&^Entry(pageMask) != 0 {
		return
	}
	c.set(va, writing, diff|tagPhysical)
	ok = true
	return
}

// Invalidate drops a single entry.
func (c *Cache) Invalidate(va uint32, writing bool) {
	c.entry[index(va, writing)] = 0
}

func (c *Cache) set(va uint32, writing bool, e Entry) {
	idx := index(va, writing)

	// Evict the oldest entry when the ring wraps.
	if old := c.valid[c.next]; old != noSlot {
		c.entry[old] = 0
	}
	c.valid[c.next] = idx
	c.next = (c.next + 1) % VALID_MAX

	c.entry[idx] = e
}

// Flush invalidates every entry.
func (c *Cache) Flush() {
	for n, idx := range c.valid {
		if idx != noSlot {
			c.entry[idx] = 0
			c.valid[n] = noSlot
		}
	}
	c.next = 0
}

// Valid iterates over the entries that are currently not invalid.
func (c *Cache) Valid() iter.Seq2[Slot, Entry] {
	return func(yield func(Slot, Entry) bool) {
		seen := make(map[uint32]bool, VALID_MAX)
		for _, idx := range c.valid {
			if idx == noSlot || seen[idx] {
				continue
			}
			seen[idx] = true
			e := c.entry[idx]
			if e.Kind() == KIND_INVALID {
				continue
			}
			slot := Slot{VA: (idx >> 1) << PAGE_SHIFT, Writing: idx&1 != 0}
			if !yield(slot, e) {
				return
			}
		}
	}
}
