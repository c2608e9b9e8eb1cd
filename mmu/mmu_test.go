package mmu

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/cache"
	"github.com/ezrec/nspemu/memory"
)

const (
	TEST_TTB    = 0x4000
	TEST_COARSE = 0x8000
	TEST_FINE   = 0x10000
	TEST_ROM    = 0x100000
	TEST_DEVICE = 0x90000000
)

type testDevice struct {
	reg [4]uint32
}

func (dev *testDevice) Read(addr uint32) uint32 {
	return dev.reg[addr>>2&3]
}

func (dev *testDevice) Write(addr uint32, value uint32) {
	dev.reg[addr>>2&3] = value
}

type testMachine struct {
	mem *memory.Physical
	bus *bus.Bus
	mmu *MMU
	dev *testDevice
}

// newTestMachine has RAM at 0, ROM right after it, so arena offsets
// equal physical addresses.
func newTestMachine(t *testing.T) (tm *testMachine) {
	mem, err := memory.New(
		memory.Region{Name: "ram", Base: 0, Size: 0x100000},
		memory.Region{Name: "rom", Base: TEST_ROM, Size: 0x10000, ReadOnly: true},
	)
	assert.NoError(t, err)

	tm = &testMachine{
		mem: mem,
		bus: bus.New(mem),
		dev: &testDevice{},
	}
	assert.NoError(t, tm.bus.Map("test", TEST_DEVICE, 0x10, tm.dev))

	tm.mmu = New(tm.bus)
	tm.bus.OnWrite = tm.mmu.PhysicalWrite

	return
}

func (tm *testMachine) poke(pa uint32, value uint32) {
	memory.Put(tm.mem.Arena()[pa:], memory.WIDTH_32, value)
}

func (tm *testMachine) l1(va uint32, entry uint32) {
	tm.poke(TEST_TTB+(va>>20)*4, entry)
}

func (tm *testMachine) enable(dacr uint32) {
	tm.mmu.SetTTB(TEST_TTB)
	tm.mmu.SetDomainAccess(dacr)
	tm.mmu.SetControl(CONTROL_MMU)
}

func apAll(ap uint32) uint32 {
	return ap | ap<<2 | ap<<4 | ap<<6
}

func section(pa uint32, ap uint32, domain uint32) uint32 {
	return pa&0xfff00000 | ap<<10 | domain<<5 | 2
}

func coarse(table uint32, domain uint32) uint32 {
	return table&0xfffffc00 | domain<<5 | 1
}

func fine(table uint32, domain uint32) uint32 {
	return table&0xfffff000 | domain<<5 | 3
}

func large(pa uint32, ap uint32) uint32 {
	return pa&0xffff0000 | apAll(ap)<<4 | 1
}

func small(pa uint32, ap uint32) uint32 {
	return pa&0xfffff000 | apAll(ap)<<4 | 2
}

func tiny(pa uint32, ap uint32) uint32 {
	return pa&0xfffffc00 | ap<<4 | 3
}

func (tm *testMachine) validCount() (count int) {
	for range tm.mmu.cache.Valid() {
		count++
	}
	return
}

func TestWalkDisabled(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)

	for _, va := range []uint32{0, 0x12345678, 0xffffffff} {
		pa, err := tm.mmu.Translate(va, ACCESS_WRITE)
		assert.NoError(err)
		assert.Equal(va, pa)
	}

	buf := &bytes.Buffer{}
	assert.NoError(tm.mmu.DumpTables(buf))
	assert.Equal("mmu disabled\n", buf.String())
}

func TestWalkPages(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)

	tm.l1(0xc0000000, section(0x00000000, AP_FULL, 0))
	tm.l1(0xc0100000, coarse(TEST_COARSE, 1))
	tm.l1(0xc0200000, fine(TEST_FINE, 2))

	// Coarse: small page at 0xc0103000, large page at 0xc0110000.
	tm.poke(TEST_COARSE+0x03*4, small(0x00045000, AP_FULL))
	for n := uint32(0x10); n < 0x20; n++ {
		tm.poke(TEST_COARSE+n*4, large(0x00070000, AP_FULL))
	}

	// Fine: tiny page at 0xc0200c00.
	tm.poke(TEST_FINE+0x3*4, tiny(0x00012400, AP_FULL))

	tm.enable(0x15)

	table := [...]struct {
		va     uint32
		pa     uint32
		size   uint32
		domain uint32
	}{
		{0xc0012345, 0x00012345, SECTION_SIZE, 0},
		{0xc0103abc, 0x00045abc, SMALL_SIZE, 1},
		{0xc011fffc, 0x0007fffc, LARGE_SIZE, 1},
		{0xc0200c10, 0x00012410, TINY_SIZE, 2},
	}

	for _, entry := range table {
		w, err := tm.mmu.Walk(tm.mmu.Registers(), entry.va, false, false)
		assert.NoError(err, "0x%08x", entry.va)
		assert.Equal(entry.pa, w.PA, "0x%08x", entry.va)
		assert.Equal(entry.size, w.PageSize, "0x%08x", entry.va)
		assert.Equal(entry.domain, w.Domain, "0x%08x", entry.va)

		pa, err := tm.mmu.Translate(entry.va, ACCESS_READ)
		assert.NoError(err)
		assert.Equal(entry.pa, pa)
	}

	w, err := tm.mmu.Walk(tm.mmu.Registers(), 0xc0103abc, false, false)
	assert.NoError(err)
	assert.Equal([]uint32{TEST_TTB + 0xc01*4, TEST_COARSE + 3*4}, w.Descriptors())
}

func TestWalkSubpages(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)

	// Small page with one AP per 1KiB subpage.
	tm.l1(0x00000000, coarse(TEST_COARSE, 0))
	tm.poke(TEST_COARSE, 0x00020000|(AP_FULL<<10|AP_USERRO<<8|AP_PRIV<<6|AP_FULL<<4)|2)
	tm.enable(0x1)
	tm.mmu.SetUser(true)

	table := [...]struct {
		va      uint32
		writing bool
		ok      bool
	}{
		{0x000, true, true},
		{0x400, false, false},
		{0x800, false, true},
		{0x800, true, false},
		{0xc00, true, true},
	}

	for _, entry := range table {
		access := ACCESS_READ
		if entry.writing {
			access = ACCESS_WRITE
		}
		_, err := tm.mmu.Translate(entry.va, access)
		if entry.ok {
			assert.NoError(err, "0x%03x", entry.va)
		} else {
			assert.ErrorIs(err, ErrPermission, "0x%03x", entry.va)
		}
	}
}

func TestWalkFaultStatus(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)

	tm.l1(0x00000000, section(0x00000000, AP_FULL, 0))
	tm.l1(0x00100000, coarse(TEST_COARSE, 3))
	tm.l1(0x00200000, section(0x00200000, AP_FULL, 2))
	tm.l1(0x00300000, coarse(TEST_COARSE+0x400, 2))
	tm.l1(0x00400000, section(0x00400000, AP_PRIV, 1))
	tm.l1(0x00500000, coarse(TEST_COARSE+0x800, 1))
	tm.l1(0x00600000, coarse(0x80000000, 4))
	tm.poke(TEST_COARSE+0x400, small(0x1000, AP_FULL))
	tm.poke(TEST_COARSE+0x800, small(0x1000, AP_PRIV))

	// Domain 0 client, 1 client, 2 none, 3 client, 4 client.
	tm.enable(0x155 &^ (3 << 4))
	tm.mmu.SetUser(true)

	table := [...]struct {
		va     uint32
		status uint32
		kind   FaultKind
		err    error
	}{
		{0x00700000, 0x05, FAULT_TRANSLATION, ErrTranslation},
		{0x00100000, 0x37, FAULT_TRANSLATION, ErrTranslation},
		{0x00200000, 0x29, FAULT_DOMAIN, ErrDomain},
		{0x00300000, 0x2b, FAULT_DOMAIN, ErrDomain},
		{0x00400000, 0x1d, FAULT_PERMISSION, ErrPermission},
		{0x00500000, 0x1f, FAULT_PERMISSION, ErrPermission},
		{0x00600000, 0x4e, FAULT_EXTERNAL, ErrExternal},
	}

	for _, entry := range table {
		_, err := tm.mmu.Translate(entry.va, ACCESS_READ)
		assert.ErrorIs(err, entry.err, "0x%08x", entry.va)

		var fault *Fault
		if assert.True(errors.As(err, &fault), "0x%08x", entry.va) {
			assert.Equal(entry.va, fault.Addr)
			assert.Equal(entry.status, fault.Status, "0x%08x", entry.va)
			assert.Equal(entry.kind, fault.Kind, "0x%08x", entry.va)
			assert.Equal(entry.status>>4, fault.Domain())
			assert.False(fault.Write)
			assert.False(fault.Prefetch)
		}
	}

	// Translation table outside of memory.
	tm.mmu.SetTTB(0x80000000)
	_, err := tm.mmu.Translate(0, ACCESS_WRITE)
	var fault *Fault
	assert.True(errors.As(err, &fault))
	assert.Equal(uint32(STATUS_EXTERNAL_L1), fault.Status)
	assert.True(fault.Write)
}

func TestWalkPermissions(t *testing.T) {
	assert := assert.New(t)

	// Allowed accesses: privileged read, privileged write, user read, user write.
	table := [...]struct {
		ap      uint32
		sr      uint32
		allowed [4]bool
	}{
		{AP_SR, 0, [4]bool{false, false, false, false}},
		{AP_SR, 1, [4]bool{true, false, false, false}},
		{AP_SR, 2, [4]bool{true, false, true, false}},
		{AP_SR, 3, [4]bool{false, false, false, false}},
		{AP_PRIV, 0, [4]bool{true, true, false, false}},
		{AP_PRIV, 3, [4]bool{true, true, false, false}},
		{AP_USERRO, 0, [4]bool{true, true, true, false}},
		{AP_FULL, 0, [4]bool{true, true, true, true}},
	}

	for _, entry := range table {
		tm := newTestMachine(t)
		tm.l1(0, section(0, entry.ap, 5))
		tm.mmu.SetTTB(TEST_TTB)
		tm.mmu.SetDomainAccess(DOMAIN_CLIENT << 10)
		tm.mmu.SetControl(CONTROL_MMU | entry.sr<<8)

		for n, allowed := range entry.allowed {
			writing := n&1 != 0
			user := n&2 != 0
			_, err := tm.mmu.Walk(tm.mmu.Registers(), 0x1234, writing, user)
			if allowed {
				assert.NoError(err, "ap %d sr %d case %d", entry.ap, entry.sr, n)
			} else {
				assert.ErrorIs(err, ErrPermission, "ap %d sr %d case %d", entry.ap, entry.sr, n)
			}
		}

		// Manager domains are never checked.
		tm.mmu.SetDomainAccess(DOMAIN_MANAGER << 10)
		_, err := tm.mmu.Walk(tm.mmu.Registers(), 0x1234, true, true)
		assert.NoError(err)

		// The reserved domain value faults like no access.
		tm.mmu.SetDomainAccess(2 << 10)
		_, err = tm.mmu.Walk(tm.mmu.Registers(), 0x1234, false, false)
		assert.ErrorIs(err, ErrDomain)
	}
}

func TestMMUCacheKinds(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)

	tm.l1(0x00000000, section(0x00000000, AP_FULL, 0))
	tm.l1(0x00100000, section(TEST_ROM, AP_FULL, 0))
	tm.l1(0x00200000, section(TEST_DEVICE, AP_FULL, 0))
	tm.enable(DOMAIN_CLIENT)

	// RAM: pointer entries both ways.
	assert.NoError(tm.mmu.Write(0x20000, memory.WIDTH_32, 0xfeedface))
	value, err := tm.mmu.Read(0x20000, memory.WIDTH_32, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0xfeedface), value)
	assert.Equal(cache.KIND_POINTER, tm.mmu.cache.Lookup(0x20000, false).Kind())
	assert.Equal(cache.KIND_POINTER, tm.mmu.cache.Lookup(0x20000, true).Kind())

	// ROM: readable through a pointer, written through the bus.
	assert.NoError(tm.mem.Load(TEST_ROM+0x10, []byte{0x11, 0x22, 0x33, 0x44}))
	value, err = tm.mmu.Read(0x100010, memory.WIDTH_16, ACCESS_FETCH)
	assert.NoError(err)
	assert.Equal(uint32(0x2211), value)
	assert.Equal(cache.KIND_POINTER, tm.mmu.cache.Lookup(0x100010, false).Kind())

	assert.NoError(tm.mmu.Write(0x100010, memory.WIDTH_32, 0))
	assert.Equal(cache.KIND_PHYSICAL, tm.mmu.cache.Lookup(0x100010, true).Kind())
	value, err = tm.mmu.Read(0x100010, memory.WIDTH_32, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0x44332211), value)

	// Devices: physical entries.
	assert.NoError(tm.mmu.Write(0x200004, memory.WIDTH_32, 0x55))
	assert.Equal(uint32(0x55), tm.dev.reg[1])
	value, err = tm.mmu.Read(0x200004, memory.WIDTH_8, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0x55), value)
	assert.Equal(cache.KIND_PHYSICAL, tm.mmu.cache.Lookup(0x200004, false).Kind())

	// Open bus beyond the end of the ROM.
	value, err = tm.mmu.Read(0x1f0000, memory.WIDTH_32, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(bus.OPEN_BUS, value)

	// No entry is ever cached for a fault.
	_, err = tm.mmu.Read(0x300000, memory.WIDTH_32, ACCESS_FETCH)
	var fault *Fault
	assert.True(errors.As(err, &fault))
	assert.True(fault.Prefetch)
	assert.Equal(cache.KIND_INVALID, tm.mmu.cache.Lookup(0x300000, false).Kind())
}

func TestMMUPageTableWrite(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)

	// Identity map the first MiB so the tables are reachable, and map
	// 0x00100000 through a coarse table.
	tm.l1(0x00000000, section(0x00000000, AP_FULL, 0))
	tm.l1(0x00100000, coarse(TEST_COARSE, 0))
	tm.poke(TEST_COARSE, small(0x00050000, AP_FULL))
	tm.poke(0x50000, 0x50505050)
	tm.poke(0x60000, 0x60606060)
	tm.enable(DOMAIN_CLIENT)

	value, err := tm.mmu.Read(0x00100000, memory.WIDTH_32, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0x50505050), value)

	// The table page is never written through a pointer.
	assert.NoError(tm.mmu.Write(TEST_COARSE, memory.WIDTH_32, small(0x00060000, AP_FULL)))
	assert.Equal(cache.KIND_PHYSICAL, tm.mmu.cache.Lookup(TEST_COARSE, true).Kind())

	value, err = tm.mmu.Read(0x00100000, memory.WIDTH_32, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0x60606060), value)

	// Physical writes from elsewhere are seen too.
	tm.bus.Write(TEST_COARSE, memory.WIDTH_32, 0)
	_, err = tm.mmu.Read(0x00100000, memory.WIDTH_32, ACCESS_READ)
	assert.ErrorIs(err, ErrTranslation)

	// So are first level descriptor updates.
	tm.bus.Write(TEST_TTB+4, memory.WIDTH_32, section(0x00000000, AP_FULL, 0))
	value, err = tm.mmu.Read(0x00150000, memory.WIDTH_32, ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0x50505050), value)
}

func TestMMUInvalidation(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)
	tm.l1(0, section(0, AP_FULL, 0))
	tm.enable(DOMAIN_CLIENT)

	fill := func() {
		_, err := tm.mmu.Read(0x1000, memory.WIDTH_32, ACCESS_READ)
		assert.NoError(err)
		assert.Equal(1, tm.validCount())
	}

	table := [...]struct {
		name  string
		event func()
		flush bool
	}{
		{"control s bit", func() { tm.mmu.SetControl(CONTROL_MMU | CONTROL_S) }, true},
		{"control other bit", func() { tm.mmu.SetControl(CONTROL_MMU | CONTROL_S | 1<<12) }, false},
		{"ttb", func() { tm.mmu.SetTTB(TEST_TTB) }, true},
		{"dacr same", func() { tm.mmu.SetDomainAccess(DOMAIN_CLIENT) }, false},
		{"dacr change", func() { tm.mmu.SetDomainAccess(DOMAIN_MANAGER) }, true},
		{"user", func() { tm.mmu.SetUser(true) }, true},
		{"user same", func() { tm.mmu.SetUser(true) }, false},
		{"privileged", func() { tm.mmu.SetUser(false) }, true},
		{"tlb", func() { tm.mmu.InvalidateTLB() }, true},
		{"remap", func() { tm.mmu.Remapped() }, true},
		{"data write", func() { tm.bus.Write(0x2000, memory.WIDTH_32, 1) }, false},
		{"table write", func() { tm.bus.Write(TEST_TTB+0x100, memory.WIDTH_8, 1) }, true},
		{"registers", func() { tm.mmu.SetRegisters(Registers{Control: CONTROL_MMU, TTB: TEST_TTB, DomainAccess: DOMAIN_CLIENT}) }, true},
		{"reset", func() { tm.mmu.Reset() }, true},
		{"disable", func() { tm.mmu.SetControl(0) }, false},
		{"enable", func() { tm.mmu.SetControl(CONTROL_MMU) }, true},
	}

	for _, entry := range table {
		fill()
		tm.poke(TEST_TTB, section(0, AP_FULL, 0))
		flushes := tm.mmu.Flushes
		entry.event()
		if entry.flush {
			assert.Equal(flushes+1, tm.mmu.Flushes, entry.name)
			assert.Equal(0, tm.validCount(), entry.name)
		} else {
			assert.Equal(flushes, tm.mmu.Flushes, entry.name)
		}
	}
}

func TestMMUUserAccess(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)
	tm.l1(0, section(0, AP_PRIV, 0))
	tm.l1(0x00100000, section(0, AP_USERRO, 0))
	tm.enable(DOMAIN_CLIENT)

	pa, err := tm.mmu.Translate(0x1234, ACCESS_WRITE)
	assert.NoError(err)
	assert.Equal(uint32(0x1234), pa)

	_, err = tm.mmu.UserAccess(0x1234, false)
	assert.ErrorIs(err, ErrPermission)

	pa, err = tm.mmu.UserAccess(0x101234, false)
	assert.NoError(err)
	assert.Equal(uint32(0x1234), pa)

	_, err = tm.mmu.UserAccess(0x101234, true)
	var fault *Fault
	assert.True(errors.As(err, &fault))
	assert.True(fault.Write)
	assert.Equal(uint32(0x0d), fault.Status)

	// Still privileged, and nothing was cached.
	assert.False(tm.mmu.User())
	assert.Equal(0, tm.validCount())
}

func TestMMUDump(t *testing.T) {
	assert := assert.New(t)

	tm := newTestMachine(t)
	tm.l1(0x00000000, section(0x00000000, AP_FULL, 0))
	tm.l1(0x00100000, section(0x00100000, AP_FULL, 0))
	tm.l1(0xc0000000, coarse(TEST_COARSE, 1))
	tm.poke(TEST_COARSE+0*4, small(0x00040000, AP_PRIV))
	tm.poke(TEST_COARSE+1*4, small(0x00041000, AP_PRIV))
	tm.poke(TEST_COARSE+3*4, small(0x00090000, AP_USERRO))
	tm.enable(0x5)

	before := tm.mmu.Flushes

	buf := &bytes.Buffer{}
	assert.NoError(tm.mmu.DumpTables(buf))
	assert.Equal(""+
		"00000000-001fffff -> 00000000-001fffff ap 3 domain 0\n"+
		"c0000000-c0001fff -> 00040000-00041fff ap 1 domain 1\n"+
		"c0003000-c0003fff -> 00090000-00090fff ap 2 domain 1\n",
		buf.String())

	// Read only.
	assert.Equal(before, tm.mmu.Flushes)
	assert.Equal(0, tm.validCount())
}

// cached returns the translation the cache yields for va, filling it on a
// miss.
func (tm *testMachine) cached(va uint32, access Access) (pa uint32, kind cache.Kind, err error) {
	e, err := tm.mmu.entry(va, access)
	if err != nil {
		return
	}
	kind = e.Kind()
	if offset, ok := e.Pointer(va); ok {
		pa = offset
	} else {
		pa, _ = e.Physical(va)
	}
	return
}

func FuzzMMUCache(f *testing.F) {
	for seed := range int64(8) {
		f.Add(seed, uint16(64))
		f.Add(seed, uint16(1000))
	}

	f.Fuzz(func(t *testing.T, seed int64, ops uint16) {
		assert := assert.New(t)

		rng := rand.New(rand.NewSource(seed))
		tm := newTestMachine(t)

		sections := []uint32{0x00000000, TEST_ROM, TEST_DEVICE}
		randomPage := func() uint32 {
			switch rng.Intn(4) {
			case 0:
				return TEST_ROM | rng.Uint32()&0xfc00
			case 1:
				return TEST_DEVICE
			}
			return rng.Uint32() & 0xffc00
		}
		randomL1 := func(n uint32) uint32 {
			domain := rng.Uint32() & 0xf
			switch rng.Intn(4) {
			case 0:
				return 0
			case 1:
				return section(sections[rng.Intn(len(sections))], rng.Uint32()&3, domain)
			case 2:
				return coarse(TEST_COARSE+n*0x400, domain)
			}
			return fine(TEST_FINE+n*0x1000, domain)
		}
		randomL2 := func() uint32 {
			switch rng.Intn(4) {
			case 0:
				return 0
			case 1:
				return large(randomPage(), rng.Uint32()&3) | rng.Uint32()&0xff0
			case 2:
				return small(randomPage(), rng.Uint32()&3) | rng.Uint32()&0xff0
			}
			return tiny(randomPage(), rng.Uint32()&3)
		}
		tableWord := func() uint32 {
			switch rng.Intn(3) {
			case 0:
				return TEST_TTB + rng.Uint32()&0x1c
			case 1:
				return TEST_COARSE + rng.Uint32()&0x1ffc
			}
			return TEST_FINE + rng.Uint32()&0x7ffc
		}

		for n := range uint32(8) {
			tm.poke(TEST_TTB+n*4, randomL1(n))
		}
		for n := uint32(0); n < 0x800; n += 4 {
			tm.poke(TEST_COARSE+n, randomL2())
		}
		for n := uint32(0); n < 0x8000; n += 4 {
			tm.poke(TEST_FINE+n, randomL2())
		}

		tm.mmu.SetTTB(TEST_TTB)
		tm.mmu.SetDomainAccess(rng.Uint32())
		tm.mmu.SetControl(CONTROL_MMU | rng.Uint32()&(CONTROL_S|CONTROL_R))

		for range ops % 2048 {
			switch rng.Intn(16) {
			case 0:
				tm.bus.Write(tableWord(), memory.WIDTH_32, randomL2())
			case 1:
				tm.bus.Write(TEST_TTB+rng.Uint32()&0x1c, memory.WIDTH_32, randomL1(rng.Uint32()&7))
			case 2:
				tm.mmu.SetUser(rng.Intn(2) == 0)
			case 3:
				tm.mmu.SetDomainAccess(rng.Uint32())
			case 4:
				tm.mmu.SetControl(CONTROL_MMU | rng.Uint32()&(CONTROL_S|CONTROL_R))
			case 5:
				// Writes through the MMU may hit the tables too.
				_ = tm.mmu.Write(rng.Uint32()&0x7ffffc, memory.WIDTH_32, randomL2())
			default:
				va := rng.Uint32() & 0x7fffff
				access := Access(rng.Intn(3))

				w, want := tm.mmu.Walk(tm.mmu.Registers(), va, access == ACCESS_WRITE, tm.mmu.User())
				pa, kind, err := tm.cached(va, access)
				if want != nil {
					assert.Error(err, "0x%08x %v", va, access)
					var got, expected *Fault
					if errors.As(err, &got) && errors.As(want, &expected) {
						assert.Equal(expected.Status, got.Status, "0x%08x %v", va, access)
					}
					continue
				}
				if !assert.NoError(err, "0x%08x %v", va, access) {
					continue
				}
				assert.Equal(w.PA, pa, "0x%08x %v", va, access)

				_, readOnly, ok := tm.mem.Locate(w.PA)
				if !ok || (access == ACCESS_WRITE && readOnly) {
					assert.Equal(cache.KIND_PHYSICAL, kind, "0x%08x %v", va, access)
				}
			}
		}
	})
}
