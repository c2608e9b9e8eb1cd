package device

import (
	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/memory"
)

const (
	SDIO_REGS    = 0x100 // Register file size.
	SDIO_VERSION = 0xfe  // Host controller version register.
)

// SdioState is the snapshot state of the SD host controller.
type SdioState struct {
	Regs [SDIO_REGS]uint8
}

// Sdio is the SD host controller of the CX II, accessed at native widths.
// No card is inserted.
type Sdio struct {
	Base
	SdioState
}

var _ Device = (*Sdio)(nil)
var _ bus.WidthDevice = (*Sdio)(nil)

// Reset the controller.
func (sd *Sdio) Reset() {
	sd.SdioState = SdioState{}
	sd.Regs[SDIO_VERSION] = 0x02
}

// ReadWidth reads a register of any width.
func (sd *Sdio) ReadWidth(addr uint32, width memory.Width) uint32 {
	addr &= SDIO_REGS - 1
	return memory.Get(sd.Regs[addr&^width.Mask():], width)
}

// WriteWidth writes a register of any width. Writing the software reset
// register clears the register file.
func (sd *Sdio) WriteWidth(addr uint32, width memory.Width, value uint32) {
	addr &= SDIO_REGS - 1
	addr &^= width.Mask()
	if addr <= 0x2f && addr+uint32(width) > 0x2f && (value>>((0x2f-addr)*8))&1 != 0 {
		sd.Reset()
		return
	}
	memory.Put(sd.Regs[addr:], width, value)
}

// Read a 32-bit register.
func (sd *Sdio) Read(addr uint32) uint32 {
	return sd.ReadWidth(addr, memory.WIDTH_32)
}

// Write a 32-bit register.
func (sd *Sdio) Write(addr uint32, value uint32) {
	sd.WriteWidth(addr, memory.WIDTH_32, value)
}
