// Package device implements the memory mapped peripherals of the
// calculator.
//
// Each device keeps its registers in an exported, fixed layout State
// structure, so that it can be saved to and restored from a snapshot.
// Values derived from the state (interrupt line levels, clock rates, timer
// deadlines) are recomputed whenever the state changes.
package device

import (
	"log"

	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

// Device is a resettable memory mapped peripheral.
type Device interface {
	bus.Device
	Reset()
}

// Ticker is a device driven by the system clock.
type Ticker interface {
	Tick(ticks int)
}

// Stateful is a device with snapshot state and derived values.
type Stateful interface {
	Device
	snapshot.Participant
	Refresh()
}

// Base is common to all devices.
type Base struct {
	Verbose bool     // If set, logs unhandled accesses.
	Irq     irq.Sink // Interrupt controller, may be nil.
}

func (b *Base) setLine(line int, on bool) {
	if b.Irq != nil {
		b.Irq.SetLine(line, on)
	}
}

func (b *Base) badRead(name string, addr uint32) {
	if b.Verbose {
		log.Printf("%v: bad read 0x%03x", name, addr)
	}
}

func (b *Base) badWrite(name string, addr uint32, value uint32) {
	if b.Verbose {
		log.Printf("%v: bad write 0x%03x = 0x%08x", name, addr, value)
	}
}

// primeCellID returns the identification register of an ARM PrimeCell
// peripheral at offsets 0xfe0 to 0xffc.
func primeCellID(id [8]uint8, addr uint32) uint32 {
	return uint32(id[(addr-0xfe0)>>2&7])
}

func isPrimeCellID(addr uint32) bool {
	return addr&0xfff >= 0xfe0
}
