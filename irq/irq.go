// Package irq implements the interrupt controller: device interrupt lines
// in, IRQ and FIQ requests to the CPU core out.
package irq

import (
	"log"
	"math/bits"

	"github.com/ezrec/nspemu/snapshot"
)

// Interrupt line numbers.
const (
	LINE_SERIAL   = 1  // UART.
	LINE_WATCHDOG = 3  // Watchdog timer.
	LINE_RTC      = 4  // Real time clock (PL031).
	LINE_USB      = 8  // USB controller.
	LINE_ADC      = 11 // Analog to digital converter.
	LINE_POWER    = 15 // ON key / power management.
	LINE_KEYPAD   = 16 // Keypad.
	LINE_TIMER0   = 17 // First timer pair.
	LINE_TIMER1   = 18 // Second timer pair.
	LINE_TIMER2   = 19 // Third timer pair.
	LINE_LCD      = 21 // LCD controller.

	NUM_LINES = 32 // Number of interrupt lines.
)

// Register offsets.
const (
	REG_IRQ_STATUS   = 0x000 // Enabled, pending IRQ lines.
	REG_FIQ_STATUS   = 0x004 // Enabled, pending FIQ lines.
	REG_RAW_STATUS   = 0x008 // Pending lines.
	REG_SELECT       = 0x00c // Lines routed to FIQ.
	REG_ENABLE       = 0x010 // Read enabled lines, write sets enables.
	REG_ENABLE_CLEAR = 0x014 // Write clears enables.
	REG_SOFT         = 0x018 // Write raises software lines.
	REG_SOFT_CLEAR   = 0x01c // Write lowers software lines.
	REG_CURRENT      = 0x030 // Lowest pending IRQ line.
	REG_ID           = 0xfe0 // Identification.

	ID_VALUE = 0x00041190 // Identification register value.
)

// Sink receives interrupt line changes from devices.
type Sink interface {
	SetLine(line int, on bool)
}

// State is the snapshot state of the controller.
type State struct {
	Raw    uint32 // Line levels driven by devices.
	Enable uint32 // Enabled lines.
	Select uint32 // Lines routed to FIQ instead of IRQ.
	Soft   uint32 // Lines raised by software.
}

// Controller is the interrupt controller.
type Controller struct {
	Verbose  bool                // If set, logs line changes.
	OnChange func(irq, fiq bool) // Called when an output request changes.
	State

	irq, fiq bool
}

var _ Sink = (*Controller)(nil)
var _ snapshot.Participant = (*Controller)(nil)

// Reset disables and lowers all lines.
func (c *Controller) Reset() {
	c.State = State{}
	c.update()
}

// SetLine drives a device interrupt line.
func (c *Controller) SetLine(line int, on bool) {
	mask := uint32(1) << line
	old := c.Raw
	if on {
		c.Raw |= mask
	} else {
		c.Raw &^= mask
	}
	if c.Verbose && old != c.Raw {
		log.Printf("irq: line %d %v", line, on)
	}
	c.update()
}

// Line reports the level of a line.
func (c *Controller) Line(line int) bool {
	return (c.Raw|c.Soft)&(uint32(1)<<line) != 0
}

// Pending returns the enabled, pending lines.
func (c *Controller) Pending() uint32 {
	return (c.Raw | c.Soft) & c.Enable
}

// IRQ reports whether an IRQ is requested.
func (c *Controller) IRQ() bool {
	return c.irq
}

// FIQ reports whether a FIQ is requested.
func (c *Controller) FIQ() bool {
	return c.fiq
}

func (c *Controller) update() {
	pending := c.Pending()
	irq := pending&^c.Select != 0
	fiq := pending&c.Select != 0
	if irq == c.irq && fiq == c.fiq {
		return
	}
	c.irq, c.fiq = irq, fiq
	if c.OnChange != nil {
		c.OnChange(irq, fiq)
	}
}

// Read an interrupt controller register.
func (c *Controller) Read(addr uint32) (value uint32) {
	switch addr & 0xfff {
	case REG_IRQ_STATUS:
		value = c.Pending() &^ c.Select
	case REG_FIQ_STATUS:
		value = c.Pending() & c.Select
	case REG_RAW_STATUS:
		value = c.Raw | c.Soft
	case REG_SELECT:
		value = c.Select
	case REG_ENABLE:
		value = c.Enable
	case REG_SOFT:
		value = c.Soft
	case REG_CURRENT:
		pending := c.Pending() &^ c.Select
		if pending == 0 {
			value = NUM_LINES
		} else {
			value = uint32(bits.TrailingZeros32(pending))
		}
	case REG_ID:
		value = ID_VALUE
	default:
		if c.Verbose {
			log.Printf("irq: bad read 0x%03x", addr)
		}
	}
	return
}

// Write an interrupt controller register.
func (c *Controller) Write(addr uint32, value uint32) {
	switch addr & 0xfff {
	case REG_SELECT:
		c.Select = value
	case REG_ENABLE:
		c.Enable |= value
	case REG_ENABLE_CLEAR:
		c.Enable &^= value
	case REG_SOFT:
		c.Soft |= value
	case REG_SOFT_CLEAR:
		c.Soft &^= value
	default:
		if c.Verbose {
			log.Printf("irq: bad write 0x%03x = 0x%08x", addr, value)
		}
		return
	}
	c.update()
}

// Suspend saves the controller state.
func (c *Controller) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "irq", &c.State)
}

// Resume restores the controller state.
func (c *Controller) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "irq", &c.State)
	if err != nil {
		return
	}
	c.update()
	return
}
