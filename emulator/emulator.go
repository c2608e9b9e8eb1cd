// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator assembles a calculator from its parts: physical memory,
// the peripheral bus, the MMU with its coprocessor, the interrupt
// controller and the devices of the selected model.
//
// The CPU core runs on a single goroutine and owns the emulator. Host
// input (serial bytes, the ON key) may arrive from any goroutine; it is
// queued and handed to the devices by Advance.
package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"slices"

	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/cpu"
	"github.com/ezrec/nspemu/device"
	"github.com/ezrec/nspemu/internal"
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/memory"
	"github.com/ezrec/nspemu/mmu"
	"github.com/ezrec/nspemu/snapshot"
)

const (
	SERIAL_QUEUE = 256 // Host bytes waiting for the UART.
	KEY_QUEUE    = 16  // ON key changes waiting for the PMU.
)

var _emulator_defines = map[string]string{
	"ROM_BASE":      fmt.Sprintf("0x%x", ROM_BASE),
	"SDRAM_BASE":    fmt.Sprintf("0x%x", SDRAM_BASE),
	"SRAM_BASE":     fmt.Sprintf("0x%x", SRAM_BASE),
	"LINE_SERIAL":   fmt.Sprintf("%d", irq.LINE_SERIAL),
	"LINE_WATCHDOG": fmt.Sprintf("%d", irq.LINE_WATCHDOG),
	"LINE_RTC":      fmt.Sprintf("%d", irq.LINE_RTC),
	"LINE_ADC":      fmt.Sprintf("%d", irq.LINE_ADC),
	"LINE_POWER":    fmt.Sprintf("%d", irq.LINE_POWER),
	"LINE_TIMER0":   fmt.Sprintf("%d", irq.LINE_TIMER0),
	"LINE_TIMER1":   fmt.Sprintf("%d", irq.LINE_TIMER1),
	"LINE_TIMER2":   fmt.Sprintf("%d", irq.LINE_TIMER2),
	"LINE_LCD":      fmt.Sprintf("%d", irq.LINE_LCD),
}

// Emulator state. Memory + MMU + interrupt controller + devices.
type Emulator struct {
	Verbose bool   // If set, logs resets and dropped host input.
	Config  Config // Machine the emulator was built for.

	Memory *memory.Physical // ROM, SDRAM and SRAM.
	Bus    *bus.Bus         // Physical address space.
	MMU    *mmu.MMU         // Address translation.
	Cp15   *cpu.Cp15        // System control coprocessor.
	Irq    *irq.Controller  // Interrupt controller.

	Timers   *device.Timers  // Classic timers, nil on the CX models.
	TimerCx  *device.TimerCx // SP804 timers, nil on the classic model.
	Serial   device.Serial   // UART.
	Watchdog *device.Watchdog
	Pmu      *device.Pmu
	Rtc      *device.Rtc
	Adc      *device.Adc
	Gpio     *device.Gpio
	Lcd      *device.Lcd
	Led      *device.Led
	Misc     *device.Misc

	SerialOut   io.Writer           // Characters sent by the guest, may be nil.
	OnInterrupt func(irq, fiq bool) // Interrupt requests for the CPU core.

	Ticks uint64 // Clock ticks since the last reset.

	devices      []device.Device
	tickers      []device.Ticker
	participants []snapshot.Participant

	serialIn       chan byte
	keys           chan bool
	resetRequested bool
}

// serialOutput forwards guest characters to the current SerialOut.
type serialOutput struct {
	emu *Emulator
}

func (so serialOutput) Write(data []byte) (n int, err error) {
	if so.emu.SerialOut == nil {
		n = len(data)
		return
	}
	return so.emu.SerialOut.Write(data)
}

// NewEmulator builds and resets the machine described by cfg.
func NewEmulator(cfg Config) (emu *Emulator, err error) {
	emu = &Emulator{
		Verbose:  cfg.Verbose,
		Config:   cfg,
		serialIn: make(chan byte, SERIAL_QUEUE),
		keys:     make(chan bool, KEY_QUEUE),
	}

	emu.Memory, err = memory.New(
		memory.Region{Name: "rom", Base: ROM_BASE, Size: ROM_SIZE, ReadOnly: true},
		memory.Region{Name: "sdram", Base: SDRAM_BASE, Size: cfg.RamSize},
		memory.Region{Name: "sram", Base: SRAM_BASE, Size: SRAM_SIZE},
	)
	if err != nil {
		emu = nil
		return
	}
	emu.Memory.Verbose = cfg.Verbose

	emu.Bus = bus.New(emu.Memory)
	emu.Bus.Verbose = cfg.Verbose

	emu.MMU = mmu.New(emu.Bus)
	emu.MMU.Verbose = cfg.Verbose
	emu.Bus.OnWrite = emu.MMU.PhysicalWrite
	emu.Memory.OnRemap = emu.MMU.Remapped

	emu.Cp15 = cpu.New(emu.MMU)
	emu.Cp15.Verbose = cfg.Verbose

	emu.Irq = &irq.Controller{
		Verbose:  cfg.Verbose,
		OnChange: emu.interrupt,
	}

	err = emu.build(device.Base{Verbose: cfg.Verbose, Irq: emu.Irq})
	if err != nil {
		emu = nil
		return
	}
	emu.Bus.Seal()

	emu.Reset()

	return
}

type mapping struct {
	name  string
	start uint32
	dev   bus.Device
}

// build creates the devices of the model and maps them.
func (emu *Emulator) build(base device.Base) (err error) {
	model := emu.Config.Model
	out := serialOutput{emu: emu}

	emu.Watchdog = &device.Watchdog{Base: base, OnReset: emu.requestReset}
	emu.Pmu = &device.Pmu{Base: base}
	emu.Rtc = &device.Rtc{Base: base, PL031: model.IsCx()}
	emu.Adc = &device.Adc{Base: base, Pmu: emu.Pmu}
	emu.Gpio = &device.Gpio{Base: base}
	emu.Lcd = &device.Lcd{Base: base, PL111: model.IsCx()}
	emu.Led = &device.Led{Base: base}
	emu.Misc = &device.Misc{Base: base, ID: device.MISC_ID_CLASSIC, OnReset: emu.requestReset}

	fastboot := &device.Fastboot{Base: base}
	hdq1w := &device.Hdq1w{Base: base}
	spi := &device.Spi{Base: base, Cx: model.IsCx()}
	unknown := &device.Unknown{Base: base}

	windows := []mapping{
		{"gpio", 0x90000000, emu.Gpio},
		{"fastboot", 0x90030000, fastboot},
		{"spi", 0x90040000, spi},
		{"watchdog", 0x90060000, emu.Watchdog},
		{"unknown", 0x90080000, unknown},
		{"rtc", 0x90090000, emu.Rtc},
		{"misc", 0x900a0000, emu.Misc},
		{"hdq1w", 0x900f0000, hdq1w},
		{"lcd", 0xc0000000, emu.Lcd},
		{"adc", 0xc4000000, emu.Adc},
		{"irq", 0xdc000000, emu.Irq},
	}

	emu.devices = []device.Device{
		emu.Gpio, fastboot, spi, emu.Watchdog, unknown, emu.Rtc, emu.Misc,
		hdq1w, emu.Lcd, emu.Pmu, emu.Adc, emu.Led,
	}
	emu.tickers = []device.Ticker{emu.Watchdog, emu.Rtc, emu.Lcd}
	emu.participants = []snapshot.Participant{
		emu.Cp15,
		emu.Irq,
		emu.Watchdog,
		emu.Pmu,
		emu.Rtc,
		emu.Adc,
		emu.Lcd,
		&snapshot.Trivial{ID: "gpio", States: []any{&emu.Gpio.GpioState}},
		&snapshot.Trivial{ID: "led", States: []any{&emu.Led.LedState}},
		&snapshot.Trivial{ID: "hdq1w", States: []any{&hdq1w.Hdq1wState}},
		&snapshot.Trivial{ID: "fastboot", States: []any{&fastboot.FastbootState}},
		&snapshot.Trivial{ID: "emulator", States: []any{&emu.Ticks}},
		&ramState{mem: emu.Memory},
	}

	if model.IsCx() {
		emu.Misc.ID = device.MISC_ID_CX

		emu.TimerCx = &device.TimerCx{Base: base}
		uart := &device.UartCx{Base: base, Output: out}
		memctl := &device.MemctlCx{Base: base}
		emu.Serial = uart

		windows = append(windows,
			mapping{"memctl", 0x8fff0000, memctl},
			mapping{"timer0", 0x90010000, emu.TimerCx.Block(0)},
			mapping{"timer1", 0x900c0000, emu.TimerCx.Block(1)},
			mapping{"timer2", 0x900d0000, emu.TimerCx.Block(2)},
			mapping{"serial", 0x90020000, uart},
			mapping{"led", 0x90110000, emu.Led},
		)
		emu.devices = append(emu.devices, emu.TimerCx, uart, memctl)
		emu.tickers = append(emu.tickers, emu.TimerCx)
		emu.participants = append(emu.participants,
			emu.TimerCx,
			uart,
			&snapshot.Trivial{ID: "memctl-cx", States: []any{&memctl.MemctlCxState}},
		)
	} else {
		emu.Timers = &device.Timers{Base: base}
		uart := &device.Uart{Base: base, Output: out}
		emu.Serial = uart
		emu.Misc.Timers = emu.Timers
		emu.Misc.Led = emu.Led

		windows = append(windows,
			mapping{"sramctl", 0x8ffe0000, &device.SramCtl{Base: base}},
			mapping{"sdramctl", 0x8fff0000, &device.SdramCtl{Base: base}},
			mapping{"timer0", 0x90010000, emu.Timers.Pair(0)},
			mapping{"timer1", 0x900c0000, emu.Timers.Pair(1)},
			mapping{"timer2", 0x900d0000, emu.Timers.Pair(2)},
			mapping{"serial", 0x90020000, uart},
		)
		emu.devices = append(emu.devices, emu.Timers, uart)
		emu.tickers = append(emu.tickers, emu.Timers)
		emu.participants = append(emu.participants, emu.Timers, uart)
	}

	switch model {
	case MODEL_CX2:
		sdio := &device.Sdio{Base: base}
		windows = append(windows,
			mapping{"adc-cx2", 0x900b0000, emu.Adc.Cx2()},
			mapping{"pmu", 0x90140000, emu.Pmu},
			mapping{"sdio", 0xb8000000, sdio},
		)
		emu.devices = append(emu.devices, sdio)
		emu.participants = append(emu.participants,
			&snapshot.Trivial{ID: "sdio", States: []any{&sdio.SdioState}},
		)
	default:
		windows = append(windows, mapping{"pmu", 0x900b0000, emu.Pmu})
	}

	for _, m := range windows {
		err = emu.Bus.Map(m.name, m.start, BLOCK_SIZE, m.dev)
		if err != nil {
			return
		}
	}

	return
}

// Defines returns an iterator over the machine constants.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cp15.Defines(),
	)
}

// Participants iterates over everything saved in a snapshot.
func (emu *Emulator) Participants() iter.Seq[snapshot.Participant] {
	return slices.Values(emu.participants)
}

func (emu *Emulator) interrupt(irq, fiq bool) {
	if emu.OnInterrupt != nil {
		emu.OnInterrupt(irq, fiq)
	}
}

func (emu *Emulator) requestReset() {
	emu.resetRequested = true
}

// Reset the machine as the reset button does: devices return to their
// power on state, memory is kept.
func (emu *Emulator) Reset() {
	if emu.Verbose {
		log.Printf("emulator: reset")
	}

	emu.Irq.Reset()
	for _, dev := range emu.devices {
		dev.Reset()
	}
	emu.MMU.Reset()
	emu.Cp15.Reset()

	emu.Ticks = 0
	emu.resetRequested = false
}

// LoadRom reads a boot ROM image into the ROM region. Bytes past the end of
// the image are zeroed.
func (emu *Emulator) LoadRom(r io.Reader) (err error) {
	image, err := io.ReadAll(io.LimitReader(r, ROM_SIZE+1))
	if err != nil {
		return
	}
	if len(image) > ROM_SIZE {
		err = ErrRomSize
		return
	}

	rom := make([]byte, ROM_SIZE)
	copy(rom, image)
	err = emu.Memory.Load(ROM_BASE, rom)
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %d byte boot ROM", len(image))
	}
	emu.MMU.Flush()
	return
}

// PowerOn clears RAM and resets the machine.
func (emu *Emulator) PowerOn() {
	emu.Memory.Clear()
	emu.Reset()
}

// SerialIn queues a host byte for the UART. It is safe to call from any
// goroutine, and reports false when the queue is full.
func (emu *Emulator) SerialIn(b byte) (ok bool) {
	select {
	case emu.serialIn <- b:
		ok = true
	default:
		if emu.Verbose {
			log.Printf("emulator: serial input 0x%02x dropped", b)
		}
	}
	return
}

// OnKey queues an ON key change. It is safe to call from any goroutine,
// and reports false when the queue is full.
func (emu *Emulator) OnKey(pressed bool) (ok bool) {
	select {
	case emu.keys <- pressed:
		ok = true
	default:
		if emu.Verbose {
			log.Printf("emulator: key change dropped")
		}
	}
	return
}

// drain hands queued host input to the devices. The UART holds a single
// character, so at most one byte is delivered per call.
func (emu *Emulator) drain() {
	for done := false; !done; {
		select {
		case pressed := <-emu.keys:
			emu.Pmu.OnKey(pressed)
		default:
			done = true
		}
	}

	if emu.Serial.RxReady() {
		select {
		case b := <-emu.serialIn:
			emu.Serial.ByteIn(b)
		default:
		}
	}
}

// NextEvent returns the ticks until the next timer expiry, if one can be
// predicted.
func (emu *Emulator) NextEvent() (ticks int, ok bool) {
	if emu.Timers != nil {
		return emu.Timers.NextEvent()
	}
	return
}

// Advance delivers queued host input and runs the clocked devices for a
// number of ticks. A reset requested by the watchdog or the software reset
// register takes effect at the end, and is reported.
func (emu *Emulator) Advance(ticks int) (reset bool) {
	emu.drain()

	for _, t := range emu.tickers {
		t.Tick(ticks)
	}
	emu.Ticks += uint64(ticks)

	if emu.resetRequested {
		emu.Reset()
		reset = true
	}

	return
}
