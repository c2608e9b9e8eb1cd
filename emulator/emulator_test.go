package emulator

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/device"
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/memory"
	"github.com/ezrec/nspemu/mmu"
	"github.com/ezrec/nspemu/snapshot"
)

func newTestEmulator(t *testing.T, model Model) (emu *Emulator) {
	emu, err := NewEmulator(DefaultConfig(model))
	assert.NoError(t, err)
	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)

	assert.False(emu.Verbose)
	assert.NotNil(emu.Timers)
	assert.Nil(emu.TimerCx)
	assert.False(emu.MMU.Registers().Enabled())
	assert.Equal(uint64(0), emu.Ticks)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("0x10000000", defines["SDRAM_BASE"])
	assert.Equal("0x1", defines["CONTROL_MMU"])
}

func TestEmulatorModels(t *testing.T) {
	assert := assert.New(t)

	table := [...]struct {
		model  Model
		pa     uint32
		name   string
		mapped bool
	}{
		{MODEL_CLASSIC, 0x90020000, "serial", true},
		{MODEL_CLASSIC, 0x900b0000, "pmu", true},
		{MODEL_CLASSIC, 0x8ffe0000, "sramctl", true},
		{MODEL_CLASSIC, 0x90110000, "", false},
		{MODEL_CLASSIC, 0xb8000000, "", false},
		{MODEL_CX, 0x8fff0000, "memctl", true},
		{MODEL_CX, 0x90110000, "led", true},
		{MODEL_CX, 0x900b0000, "pmu", true},
		{MODEL_CX, 0xb8000000, "", false},
		{MODEL_CX2, 0x900b0000, "adc-cx2", true},
		{MODEL_CX2, 0x90140000, "pmu", true},
		{MODEL_CX2, 0xb8000000, "sdio", true},
		{MODEL_CX2, 0xdc000000, "irq", true},
	}

	emus := map[Model]*Emulator{}
	for _, entry := range table {
		emu, ok := emus[entry.model]
		if !ok {
			emu = newTestEmulator(t, entry.model)
			emus[entry.model] = emu
		}
		m, ok := emu.Bus.Lookup(entry.pa)
		assert.Equal(entry.mapped, ok, "%v 0x%08x", entry.model, entry.pa)
		if ok {
			assert.Equal(entry.name, m.Name, "%v 0x%08x", entry.model, entry.pa)
		} else {
			assert.Equal(bus.OPEN_BUS, emu.Bus.Read(entry.pa, memory.WIDTH_32))
		}
	}

	assert.Equal(uint32(device.MISC_ID_CLASSIC), emus[MODEL_CLASSIC].Bus.Read(0x900a0000, memory.WIDTH_32))
	assert.Equal(uint32(device.MISC_ID_CX), emus[MODEL_CX].Bus.Read(0x900a0000, memory.WIDTH_32))

	region, ok := emus[MODEL_CX].Memory.Region("sdram")
	assert.True(ok)
	assert.Equal(uint32(SDRAM_SIZE_CX), region.Size)
}

func TestEmulatorSerial(t *testing.T) {
	assert := assert.New(t)

	for _, model := range []Model{MODEL_CLASSIC, MODEL_CX} {
		emu := newTestEmulator(t, model)
		out := &bytes.Buffer{}
		emu.SerialOut = out

		assert.True(emu.SerialIn('o'))
		assert.True(emu.SerialIn('k'))

		// Nothing is delivered before the emulator runs.
		assert.True(emu.Serial.RxReady())

		emu.Advance(1)
		assert.False(emu.Serial.RxReady())

		// The UART holds one character until it is read.
		emu.Advance(1)
		assert.Equal(uint32('o'), emu.Bus.Read(0x90020000, memory.WIDTH_8), model)
		emu.Advance(1)
		assert.Equal(uint32('k'), emu.Bus.Read(0x90020000, memory.WIDTH_8), model)
		assert.True(emu.Serial.RxReady())

		emu.Bus.Write(0x90020000, memory.WIDTH_8, 'h')
		emu.Bus.Write(0x90020000, memory.WIDTH_8, 'i')
		assert.Equal("hi", out.String(), model)
	}
}

func TestEmulatorSerialQueue(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)

	for n := range SERIAL_QUEUE {
		assert.True(emu.SerialIn(byte(n)))
	}
	assert.False(emu.SerialIn(0xff))
}

func TestEmulatorOnKey(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CX2)

	assert.Equal(uint32(0x114), emu.Bus.Read(0x90140028, memory.WIDTH_32))
	assert.True(emu.OnKey(true))
	emu.Advance(0)
	assert.Equal(uint32(0x104), emu.Bus.Read(0x90140028, memory.WIDTH_32))
	assert.True(emu.OnKey(false))
	emu.Advance(0)
	assert.Equal(uint32(0x114), emu.Bus.Read(0x90140028, memory.WIDTH_32))
}

func TestEmulatorInterrupt(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)

	var requests []bool
	emu.OnInterrupt = func(irq, fiq bool) {
		assert.False(fiq)
		requests = append(requests, irq)
	}

	emu.Bus.Write(0xdc000010, memory.WIDTH_32, 1<<irq.LINE_SERIAL)
	emu.Bus.Write(0x90020004, memory.WIDTH_32, device.UART_INT_RX)
	emu.SerialIn('!')
	emu.Advance(1)

	assert.Equal([]bool{true}, requests)
	assert.Equal(uint32(1<<irq.LINE_SERIAL), emu.Bus.Read(0xdc000000, memory.WIDTH_32))

	emu.Bus.Read(0x90020000, memory.WIDTH_32)
	assert.Equal([]bool{true, false}, requests)
}

func TestEmulatorResetRequest(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)

	// Second watchdog expiry.
	emu.Bus.Write(0x90060000, memory.WIDTH_32, 10)
	emu.Bus.Write(0x90060008, memory.WIDTH_32, device.WATCHDOG_INTEN|device.WATCHDOG_RESEN)
	assert.False(emu.Advance(10))
	assert.Equal(uint64(10), emu.Ticks)
	assert.True(emu.Advance(10))
	assert.Equal(uint64(0), emu.Ticks)
	assert.Equal(uint32(0xffffffff), emu.Watchdog.Load)

	// Software reset through the misc block.
	emu.Bus.Write(0x900a0000+device.MISC_RESET, memory.WIDTH_32, 1)
	assert.True(emu.Advance(0))
	assert.False(emu.Advance(0))
}

func TestEmulatorResetKeepsMemory(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CX)

	assert.NoError(emu.MMU.Write(SDRAM_BASE, memory.WIDTH_32, 0x12345678))
	assert.NoError(emu.Cp15.MCR(0, 2, 0, 0, SDRAM_BASE))

	emu.Reset()
	assert.Equal(uint32(0), emu.MMU.Registers().TTB)
	assert.Equal(uint32(0x12345678), emu.Bus.Read(SDRAM_BASE, memory.WIDTH_32))

	emu.PowerOn()
	assert.Equal(uint32(0), emu.Bus.Read(SDRAM_BASE, memory.WIDTH_32))
}

func TestEmulatorSnapshot(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)

	assert.NoError(emu.MMU.Write(SDRAM_BASE+0x100, memory.WIDTH_32, 0xcafef00d))
	assert.NoError(emu.MMU.Write(SRAM_BASE+0x10, memory.WIDTH_16, 0xbeef))
	assert.NoError(emu.Cp15.MCR(0, 2, 0, 0, SDRAM_BASE))
	assert.NoError(emu.Cp15.MCR(0, 3, 0, 0, 0x3))
	emu.Bus.Write(0x90060000, memory.WIDTH_32, 1234)
	emu.Advance(5)

	buf := &bytes.Buffer{}
	assert.NoError(emu.Save(buf))

	assert.NoError(emu.MMU.Write(SDRAM_BASE+0x100, memory.WIDTH_32, 0))
	assert.NoError(emu.MMU.Write(SRAM_BASE+0x10, memory.WIDTH_16, 0))
	emu.Reset()

	flushes := emu.MMU.Flushes
	assert.NoError(emu.Load(buf))
	assert.Greater(emu.MMU.Flushes, flushes)

	value, err := emu.MMU.Read(SDRAM_BASE+0x100, memory.WIDTH_32, mmu.ACCESS_READ)
	assert.NoError(err)
	assert.Equal(uint32(0xcafef00d), value)
	assert.Equal(uint32(0xbeef), emu.Bus.Read(SRAM_BASE+0x10, memory.WIDTH_16))
	assert.Equal(uint32(SDRAM_BASE), emu.MMU.Registers().TTB)
	assert.Equal(uint32(0x3), emu.MMU.Registers().DomainAccess)
	assert.Equal(uint32(1234), emu.Watchdog.Load)
	assert.Equal(uint64(5), emu.Ticks)
}

func TestEmulatorResumeFailure(t *testing.T) {
	assert := assert.New(t)

	classic := newTestEmulator(t, MODEL_CLASSIC)
	classic.Bus.Write(0x90060000, memory.WIDTH_32, 1234)
	assert.NoError(classic.MMU.Write(SDRAM_BASE, memory.WIDTH_32, 0x5555aaaa))

	cx := newTestEmulator(t, MODEL_CX)
	cx.Bus.Write(0x90060000, memory.WIDTH_32, 999)

	snap := snapshot.New()
	assert.NoError(cx.Suspend(snap))

	err := classic.Resume(snap)
	var resume *ErrResume
	assert.True(errors.As(err, &resume))
	assert.ErrorIs(err, snapshot.ErrRecordSize)

	assert.Equal(uint32(1234), classic.Watchdog.Load)
	assert.Equal(uint32(0x5555aaaa), classic.Bus.Read(SDRAM_BASE, memory.WIDTH_32))
}

func TestEmulatorNextEvent(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)
	_, ok := emu.NextEvent()
	assert.False(ok)

	emu.Bus.Write(0x90010000, memory.WIDTH_32, 20)
	emu.Bus.Write(0x90010004, memory.WIDTH_32, 0)
	emu.Bus.Write(0x90010008, memory.WIDTH_32, 0)
	ticks, ok := emu.NextEvent()
	assert.True(ok)
	assert.Equal(20, ticks)

	cx := newTestEmulator(t, MODEL_CX)
	_, ok = cx.NextEvent()
	assert.False(ok)
}

func TestEmulatorLoadRom(t *testing.T) {
	assert := assert.New(t)

	emu := newTestEmulator(t, MODEL_CLASSIC)

	assert.NoError(emu.LoadRom(bytes.NewReader([]byte{0x78, 0x56, 0x34, 0x12})))
	assert.Equal(uint32(0x12345678), emu.Bus.Read(ROM_BASE, memory.WIDTH_32))
	assert.Equal(uint32(0), emu.Bus.Read(ROM_BASE+4, memory.WIDTH_32))

	// ROM is read only to the guest, and survives a power cycle.
	emu.Bus.Write(ROM_BASE, memory.WIDTH_32, 0)
	emu.PowerOn()
	assert.Equal(uint32(0x12345678), emu.Bus.Read(ROM_BASE, memory.WIDTH_32))

	err := emu.LoadRom(bytes.NewReader(make([]byte, ROM_SIZE+1)))
	assert.ErrorIs(err, ErrRomSize)
}
