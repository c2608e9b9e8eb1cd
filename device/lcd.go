package device

import (
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

const (
	LCD_FRAME_TICKS = 1000000 / 60 // Ticks per frame at a 1 MHz tick.
	LCD_ENABLE      = 0x01         // Control: controller enabled.
	LCD_INT_FRAME   = 0x0c         // Base update and vertical compare interrupts.
	LCD_PALETTE     = 0x200        // Palette offset.
)

var pl111ID = [8]uint8{0x11, 0x11, 0x24, 0x00, 0x0d, 0xf0, 0x05, 0xb1}

// LcdState is the snapshot state of the LCD controller.
type LcdState struct {
	Timing    [4]uint32
	UpBase    uint32 // Upper panel frame buffer.
	LpBase    uint32 // Lower panel frame buffer.
	Control   uint32
	IntMask   uint32
	IntStatus uint32
	Palette   [128]uint32 // Two 16-bit entries per word.
	Ticks     uint32      // Ticks into the current frame.
}

// Lcd is the PL110 (classic) or PL111 (CX) LCD controller registers.
// Drawing frames is left to the host.
type Lcd struct {
	Base
	LcdState
	PL111   bool   // PL111 layout: control at 0x18, mask at 0x1c.
	OnFrame func() // Called at every frame while enabled.
}

var _ Stateful = (*Lcd)(nil)
var _ Ticker = (*Lcd)(nil)

// Reset the controller.
func (lcd *Lcd) Reset() {
	lcd.LcdState = LcdState{}
	lcd.Refresh()
}

// Refresh recomputes the interrupt line.
func (lcd *Lcd) Refresh() {
	lcd.setLine(irq.LINE_LCD, lcd.IntStatus&lcd.IntMask != 0)
}

func (lcd *Lcd) register(addr uint32) *uint32 {
	control, mask := uint32(0x1c), uint32(0x18)
	if lcd.PL111 {
		control, mask = 0x18, 0x1c
	}

	switch {
	case addr < 0x10:
		return &lcd.Timing[addr>>2]
	case addr == 0x10:
		return &lcd.UpBase
	case addr == 0x14:
		return &lcd.LpBase
	case addr == control:
		return &lcd.Control
	case addr == mask:
		return &lcd.IntMask
	case addr >= LCD_PALETTE && addr < LCD_PALETTE+0x200:
		return &lcd.Palette[(addr-LCD_PALETTE)>>2]
	}
	return nil
}

// Read a controller register.
func (lcd *Lcd) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if lcd.PL111 && isPrimeCellID(addr) {
		value = primeCellID(pl111ID, addr)
		return
	}

	switch addr {
	case 0x20:
		value = lcd.IntStatus
		return
	case 0x24:
		value = lcd.IntStatus & lcd.IntMask
		return
	}

	reg := lcd.register(addr)
	if reg == nil {
		lcd.badRead("lcd", addr)
		return
	}
	value = *reg
	return
}

// Write a controller register.
func (lcd *Lcd) Write(addr uint32, value uint32) {
	addr &= 0xfff
	if addr == 0x28 {
		lcd.IntStatus &^= value
		lcd.Refresh()
		return
	}

	reg := lcd.register(addr)
	if reg == nil {
		lcd.badWrite("lcd", addr, value)
		return
	}
	*reg = value
	lcd.Refresh()
}

// Tick advances the frame timer.
func (lcd *Lcd) Tick(ticks int) {
	if lcd.Control&LCD_ENABLE == 0 {
		return
	}

	total := int(lcd.Ticks) + ticks
	frames := total / LCD_FRAME_TICKS
	lcd.Ticks = uint32(total % LCD_FRAME_TICKS)
	if frames == 0 {
		return
	}

	lcd.IntStatus |= LCD_INT_FRAME
	lcd.Refresh()
	if lcd.OnFrame != nil {
		lcd.OnFrame()
	}
}

// Suspend saves the controller state.
func (lcd *Lcd) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "lcd", &lcd.LcdState)
}

// Resume restores the controller state.
func (lcd *Lcd) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "lcd", &lcd.LcdState)
	if err != nil {
		return
	}
	lcd.Refresh()
	return
}
