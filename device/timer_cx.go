package device

import (
	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

// SP804 control register bits.
const (
	SP804_ONESHOT   = 0x01 // Halt at zero.
	SP804_32BIT     = 0x02 // 32-bit counter, 16-bit otherwise.
	SP804_PRESCALE  = 0x0c // Prescale select: 1, 16 or 256.
	SP804_INTENABLE = 0x20 // Interrupt enable.
	SP804_PERIODIC  = 0x40 // Reload from the load register at zero.
	SP804_ENABLE    = 0x80 // Counter enable.
)

var sp804ID = [8]uint8{0x04, 0x18, 0x14, 0x00, 0x0d, 0xf0, 0x05, 0xb1}

// CxTimer is one SP804 counter.
type CxTimer struct {
	Load      uint32 // Reload value.
	Value     uint32 // Current value.
	Prescale  uint8  // Clock ticks since the last step.
	Control   uint8  // Control register.
	Interrupt uint8  // Raw interrupt status.
	Halted    uint8  // One shot counter reached zero.
}

// TimerCxState is the snapshot state of the SP804 timers.
type TimerCxState struct {
	Timer [TIMER_PAIRS][2]CxTimer
}

// TimerCx are the three SP804 dual timers of the CX models.
type TimerCx struct {
	Base
	TimerCxState
}

var _ Stateful = (*TimerCx)(nil)
var _ Ticker = (*TimerCx)(nil)

// Reset the timers.
func (tc *TimerCx) Reset() {
	tc.TimerCxState = TimerCxState{}
	for b := range tc.Timer {
		for n := range tc.Timer[b] {
			tc.Timer[b][n].Value = 0xffffffff
			tc.Timer[b][n].Control = SP804_INTENABLE
		}
	}
	tc.Refresh()
}

// Refresh recomputes the interrupt lines.
func (tc *TimerCx) Refresh() {
	for b := range tc.Timer {
		tc.update(b)
	}
}

func (tc *TimerCx) update(b int) {
	on := false
	for n := range tc.Timer[b] {
		on = on || tc.Timer[b][n].masked() != 0
	}
	tc.setLine(irq.LINE_TIMER0+b, on)
}

func (t *CxTimer) masked() uint32 {
	if t.Control&SP804_INTENABLE == 0 {
		return 0
	}
	return uint32(t.Interrupt)
}

func (t *CxTimer) mask() uint32 {
	if t.Control&SP804_32BIT != 0 {
		return 0xffffffff
	}
	return 0xffff
}

func (t *CxTimer) divider() int {
	switch t.Control & SP804_PRESCALE {
	case 0x04:
		return 16
	case 0x08:
		return 256
	}
	return 1
}

// Block returns the register block of one dual timer.
func (tc *TimerCx) Block(b int) bus.Device {
	return &timerCxPort{timers: tc, block: b}
}

type timerCxPort struct {
	timers *TimerCx
	block  int
}

func (port *timerCxPort) Read(addr uint32) uint32 {
	return port.timers.read(port.block, addr)
}

func (port *timerCxPort) Write(addr uint32, value uint32) {
	port.timers.write(port.block, addr, value)
}

// Read a register. Each dual timer occupies 0x10000 bytes.
func (tc *TimerCx) Read(addr uint32) uint32 {
	return tc.read(int(addr>>16)%TIMER_PAIRS, addr&0xffff)
}

// Write a register.
func (tc *TimerCx) Write(addr uint32, value uint32) {
	tc.write(int(addr>>16)%TIMER_PAIRS, addr&0xffff, value)
}

func (tc *TimerCx) read(b int, addr uint32) (value uint32) {
	addr &= 0xfff
	if isPrimeCellID(addr) {
		value = primeCellID(sp804ID, addr)
		return
	}
	if addr >= 0x40 {
		tc.badRead("timer-cx", addr)
		return
	}

	t := &tc.Timer[b][addr>>5]
	switch addr & 0x1f {
	case 0x00, 0x18:
		value = t.Load
	case 0x04:
		value = t.Value
	case 0x08:
		value = uint32(t.Control)
	case 0x10:
		value = uint32(t.Interrupt)
	case 0x14:
		value = t.masked()
	default:
		tc.badRead("timer-cx", addr)
	}
	return
}

func (tc *TimerCx) write(b int, addr uint32, value uint32) {
	addr &= 0xfff
	if addr >= 0x40 {
		tc.badWrite("timer-cx", addr, value)
		return
	}

	t := &tc.Timer[b][addr>>5]
	switch addr & 0x1f {
	case 0x00:
		t.Load = value
		t.Value = value & t.mask()
		t.Halted = 0
	case 0x08:
		if value&SP804_ENABLE != 0 && t.Control&SP804_ENABLE == 0 {
			t.Halted = 0
		}
		t.Control = uint8(value)
		t.Value &= t.mask()
	case 0x0c:
		t.Interrupt = 0
	case 0x18:
		t.Load = value
	default:
		tc.badWrite("timer-cx", addr, value)
		return
	}
	tc.update(b)
}

// count steps the counter, returning true when it expired.
func (t *CxTimer) count(steps int) (expired bool) {
	for steps > 0 && t.Halted == 0 {
		if t.Value == 0 {
			steps--
			if t.Control&SP804_PERIODIC != 0 {
				t.Value = t.Load & t.mask()
			} else {
				t.Value = t.mask()
			}
			if t.Value == 0 {
				t.Interrupt = 1
				expired = true
				if t.Control&SP804_ONESHOT != 0 {
					t.Halted = 1
				}
			}
			continue
		}

		if uint64(steps) < uint64(t.Value) {
			t.Value -= uint32(steps)
			return
		}

		steps -= int(t.Value)
		t.Value = 0
		t.Interrupt = 1
		expired = true
		if t.Control&SP804_ONESHOT != 0 {
			t.Halted = 1
		}
	}
	return
}

// Tick advances the timers by a number of clock ticks.
func (tc *TimerCx) Tick(ticks int) {
	for b := range tc.Timer {
		changed := false
		for n := range tc.Timer[b] {
			t := &tc.Timer[b][n]
			if t.Control&SP804_ENABLE == 0 {
				continue
			}
			div := t.divider()
			total := int(t.Prescale) + ticks
			t.Prescale = uint8(total % div)
			if t.count(total / div) {
				changed = true
			}
		}
		if changed {
			tc.update(b)
		}
	}
}

// Suspend saves the timer state.
func (tc *TimerCx) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "timer-cx", &tc.TimerCxState)
}

// Resume restores the timer state.
func (tc *TimerCx) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "timer-cx", &tc.TimerCxState)
	if err != nil {
		return
	}
	tc.Refresh()
	return
}
