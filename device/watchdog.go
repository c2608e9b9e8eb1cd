package device

import (
	"log"

	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

const (
	WATCHDOG_UNLOCK = 0x1acce551 // Lock register value that allows writes.

	WATCHDOG_INTEN = 0x01 // Counter and interrupt enable.
	WATCHDOG_RESEN = 0x02 // Reset on second expiry.
)

var sp805ID = [8]uint8{0x05, 0x18, 0x14, 0x00, 0x0d, 0xf0, 0x05, 0xb1}

// WatchdogState is the snapshot state of the watchdog.
type WatchdogState struct {
	Load      uint32 // Reload value.
	Value     uint32 // Current value.
	Control   uint8  // Control register.
	Interrupt uint8  // Raw interrupt status.
	Locked    uint8  // Register writes are refused.
}

// Watchdog is the SP805 watchdog timer.
type Watchdog struct {
	Base
	WatchdogState
	OnReset func() // Called when the watchdog resets the machine.
}

var _ Stateful = (*Watchdog)(nil)
var _ Ticker = (*Watchdog)(nil)

// Reset the watchdog.
func (wd *Watchdog) Reset() {
	wd.WatchdogState = WatchdogState{
		Load:  0xffffffff,
		Value: 0xffffffff,
	}
	wd.Refresh()
}

// Refresh recomputes the interrupt line.
func (wd *Watchdog) Refresh() {
	wd.setLine(irq.LINE_WATCHDOG, wd.masked() != 0)
}

func (wd *Watchdog) masked() uint32 {
	if wd.Control&WATCHDOG_INTEN == 0 {
		return 0
	}
	return uint32(wd.Interrupt)
}

// Read a watchdog register.
func (wd *Watchdog) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if isPrimeCellID(addr) {
		value = primeCellID(sp805ID, addr)
		return
	}

	switch addr {
	case 0x000:
		value = wd.Load
	case 0x004:
		value = wd.Value
	case 0x008:
		value = uint32(wd.Control)
	case 0x010:
		value = uint32(wd.Interrupt)
	case 0x014:
		value = wd.masked()
	case 0xc00:
		value = uint32(wd.Locked)
	default:
		wd.badRead("watchdog", addr)
	}
	return
}

// Write a watchdog register. While locked, only the lock register can be
// written.
func (wd *Watchdog) Write(addr uint32, value uint32) {
	addr &= 0xfff

	if addr == 0xc00 {
		if value == WATCHDOG_UNLOCK {
			wd.Locked = 0
		} else {
			wd.Locked = 1
		}
		return
	}

	if wd.Locked != 0 {
		return
	}

	switch addr {
	case 0x000:
		wd.Load = value
		wd.Value = value
	case 0x008:
		wd.Control = uint8(value & (WATCHDOG_INTEN | WATCHDOG_RESEN))
	case 0x00c:
		wd.Interrupt = 0
		wd.Value = wd.Load
	default:
		wd.badWrite("watchdog", addr, value)
		return
	}
	wd.Refresh()
}

// Tick advances the watchdog by a number of clock ticks. A counter at
// zero expires on the next tick. However many expiries a call covers, the
// machine is reset at most once.
func (wd *Watchdog) Tick(ticks int) {
	if wd.Control&WATCHDOG_INTEN == 0 || ticks <= 0 {
		return
	}

	elapsed := uint64(ticks)
	first := max(uint64(wd.Value), 1)
	if elapsed < first {
		wd.Value -= uint32(elapsed)
		return
	}

	period := max(uint64(wd.Load), 1)
	remaining := elapsed - first
	expiries := 1 + remaining/period
	wd.Value = wd.Load - uint32(remaining%period)

	if wd.Control&WATCHDOG_RESEN != 0 && (wd.Interrupt != 0 || expiries > 1) {
		if wd.Verbose {
			log.Printf("watchdog: reset")
		}
		if wd.OnReset != nil {
			wd.OnReset()
		}
	}
	wd.Interrupt = 1
	wd.Refresh()
}

// Suspend saves the watchdog state.
func (wd *Watchdog) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "watchdog", &wd.WatchdogState)
}

// Resume restores the watchdog state.
func (wd *Watchdog) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "watchdog", &wd.WatchdogState)
	if err != nil {
		return
	}
	wd.Refresh()
	return
}
