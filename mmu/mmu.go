// Package mmu translates virtual addresses for the CPU core.
//
// Every access first consults the translation cache. A miss walks the page
// tables, checks permissions and caches the result for the page. Any event
// that could make a cached entry stale flushes the cache.
package mmu

import (
	"fmt"
	"io"
	"log"

	"github.com/ezrec/nspemu/cache"
	"github.com/ezrec/nspemu/memory"
)

// Access is the kind of memory access being translated.
type Access int

//go:generate go tool stringer -linecomment -type=Access
const (
	ACCESS_READ  = Access(iota) // read
	ACCESS_WRITE                // write
	ACCESS_FETCH                // fetch
)

// Physical is the physical address space behind the MMU.
type Physical interface {
	Tables
	Read(pa uint32, width memory.Width) uint32
	Write(pa uint32, width memory.Width, value uint32)
}

// MMU is the address translation façade seen by the CPU core.
type MMU struct {
	Verbose bool // If set, logs flushes and faults.
	Walker       // Page table walker.
	Misses  int  // Translation cache misses since creation.
	Flushes int  // Translation cache flushes since creation.

	mem   Physical
	cache *cache.Cache
	regs  Registers
	user  bool

	watched map[uint32]struct{} // 1KiB physical pages holding walked descriptors.
}

// New creates an MMU, disabled, in privileged mode.
func New(mem Physical) (m *MMU) {
	m = &MMU{
		Walker:  Walker{Tables: mem},
		mem:     mem,
		cache:   cache.New(),
		watched: map[uint32]struct{}{},
	}
	return
}

// Reset disables translation and returns to privileged mode.
func (m *MMU) Reset() {
	m.regs = Registers{}
	m.user = false
	m.Flush()
}

// Registers returns the translation registers.
func (m *MMU) Registers() Registers {
	return m.regs
}

// User reports whether the CPU is in user mode.
func (m *MMU) User() bool {
	return m.user
}

// SetRegisters replaces all translation registers.
func (m *MMU) SetRegisters(regs Registers) {
	if regs != m.regs {
		m.regs = regs
		m.Flush()
	}
}

// SetControl writes the CP15 control register.
func (m *MMU) SetControl(value uint32) {
	changed := (m.regs.Control ^ value) & CONTROL_TRANSLATION
	m.regs.Control = value
	if changed != 0 {
		m.Flush()
	}
}

// SetTTB writes the translation table base.
func (m *MMU) SetTTB(value uint32) {
	m.regs.TTB = value
	m.Flush()
}

// SetDomainAccess writes the domain access control register.
func (m *MMU) SetDomainAccess(value uint32) {
	if m.regs.DomainAccess != value {
		m.regs.DomainAccess = value
		m.Flush()
	}
}

// SetUser switches between privileged and user mode.
func (m *MMU) SetUser(user bool) {
	if m.user != user {
		m.user = user
		m.Flush()
	}
}

// InvalidateTLB handles a TLB maintenance operation.
func (m *MMU) InvalidateTLB() {
	m.Flush()
}

// Remapped handles a change of the physical memory layout.
func (m *MMU) Remapped() {
	m.Flush()
}

// PhysicalWrite is notified of every physical memory write, so page table
// updates are seen by later translations.
func (m *MMU) PhysicalWrite(pa uint32) {
	if _, ok := m.watched[pa>>cache.PAGE_SHIFT]; ok {
		if m.Verbose {
			log.Printf("mmu: page table write 0x%08x", pa)
		}
		m.Flush()
	}
}

// Flush invalidates the whole translation cache.
func (m *MMU) Flush() {
	if m.Verbose {
		log.Printf("mmu: flush")
	}
	m.cache.Flush()
	clear(m.watched)
	m.Flushes++
}

func (m *MMU) fault(err error, access Access) error {
	if fault, ok := err.(*Fault); ok {
		fault.Prefetch = access == ACCESS_FETCH
		if m.Verbose {
			log.Printf("mmu: %v", fault)
		}
	}
	return err
}

// Translate walks the tables for va in the current mode without touching
// the translation cache.
func (m *MMU) Translate(va uint32, access Access) (pa uint32, err error) {
	w, err := m.Walker.Walk(m.regs, va, access == ACCESS_WRITE, m.user)
	if err != nil {
		err = m.fault(err, access)
		return
	}
	pa = w.PA
	return
}

// UserAccess translates va with user permissions regardless of the current
// mode, as done by the LDRT and STRT instructions. It is never cached.
func (m *MMU) UserAccess(va uint32, writing bool) (pa uint32, err error) {
	w, err := m.Walker.Walk(m.regs, va, writing, true)
	if err != nil {
		access := ACCESS_READ
		if writing {
			access = ACCESS_WRITE
		}
		err = m.fault(err, access)
		return
	}
	pa = w.PA
	return
}

// Miss walks the tables for va and fills the translation cache entry of
// the page. Fetches share the read slot.
func (m *MMU) Miss(va uint32, access Access) (e cache.Entry, err error) {
	m.Misses++

	writing := access == ACCESS_WRITE

	w, err := m.Walker.Walk(m.regs, va, writing, m.user)
	if err != nil {
		err = m.fault(err, access)
		return
	}

	if m.regs.Enabled() {
		m.watch(w.Descriptors())
	}

	page := va &^ (cache.PAGE_SIZE - 1)
	pa := w.PA &^ (cache.PAGE_SIZE - 1)

	offset, readOnly, ok := m.mem.Locate(pa)
	if writing {
		_, table := m.watched[pa>>cache.PAGE_SHIFT]
		ok = ok && !readOnly && !table
	}

	if ok {
		m.cache.SetPointer(page, writing, offset)
	} else {
		m.cache.SetPhysical(page, writing, pa)
	}

	e = m.cache.Lookup(va, writing)

	return
}

// watch records descriptor pages. A newly watched page may already have
// a cached write pointer, so the cache is flushed first.
func (m *MMU) watch(tables []uint32) {
	for _, pa := range tables {
		if _, ok := m.watched[pa>>cache.PAGE_SHIFT]; !ok {
			m.Flush()
			break
		}
	}
	for _, pa := range tables {
		m.watched[pa>>cache.PAGE_SHIFT] = struct{}{}
	}
}

func (m *MMU) entry(va uint32, access Access) (e cache.Entry, err error) {
	e = m.cache.Lookup(va, access == ACCESS_WRITE)
	if e.Kind() == cache.KIND_INVALID {
		e, err = m.Miss(va, access)
	}
	return
}

// Read loads a value of the given width from virtual address va.
func (m *MMU) Read(va uint32, width memory.Width, access Access) (value uint32, err error) {
	va &^= width.Mask()

	e, err := m.entry(va, access)
	if err != nil {
		return
	}

	if offset, ok := e.Pointer(va); ok {
		value = memory.Get(m.mem.Arena()[offset:], width)
		return
	}

	pa, _ := e.Physical(va)
	value = m.mem.Read(pa, width)

	return
}

// Write stores a value of the given width to virtual address va.
func (m *MMU) Write(va uint32, width memory.Width, value uint32) (err error) {
	va &^= width.Mask()

	e, err := m.entry(va, ACCESS_WRITE)
	if err != nil {
		return
	}

	if offset, ok := e.Pointer(va); ok {
		memory.Put(m.mem.Arena()[offset:], width, value)
		return
	}

	pa, _ := e.Physical(va)
	m.mem.Write(pa, width, value)

	return
}

// DumpTables writes the current virtual memory layout to w.
func (m *MMU) DumpTables(w io.Writer) (err error) {
	if !m.regs.Enabled() {
		_, err = fmt.Fprintln(w, "mmu disabled")
		return
	}

	for mapping := range m.Walker.Mappings(m.regs) {
		_, err = fmt.Fprintf(w, "%08x-%08x -> %08x-%08x ap %d domain %d\n",
			mapping.VA, mapping.VA+mapping.Size-1,
			mapping.PA, mapping.PA+mapping.Size-1,
			mapping.AP, mapping.Domain)
		if err != nil {
			return
		}
	}

	return
}
