package device

import (
	"log"
)

const (
	MISC_ID_CLASSIC = 0x01000010 // Hardware id of the classic models.
	MISC_ID_CX      = 0x00000101 // Hardware id of the CX models.
	MISC_RESET      = 0x08       // Reset request register.
)

// Misc is the miscellaneous control block: hardware id, reset request,
// and on the classic models the timer interrupt registers and the LEDs.
type Misc struct {
	Base
	ID      uint32  // Hardware id.
	Timers  *Timers // Classic timers, nil on the CX models.
	Led     *Led    // Classic LEDs, nil on the CX models.
	OnReset func()  // Called for a software reset request.
}

var _ Device = (*Misc)(nil)

// Reset has no state of its own to clear.
func (misc *Misc) Reset() {
}

func (misc *Misc) timerRegister(addr uint32) (pair int, mask bool, ok bool) {
	if misc.Timers == nil || addr < 0x10 || addr >= 0x10+TIMER_PAIRS*8 {
		return
	}
	pair = int(addr-0x10) >> 3
	mask = addr&4 != 0
	ok = true
	return
}

// Read a register.
func (misc *Misc) Read(addr uint32) (value uint32) {
	addr &= 0xfff

	if pair, mask, ok := misc.timerRegister(addr); ok {
		if mask {
			value = misc.Timers.IntMask(pair)
		} else {
			value = misc.Timers.IntStatus(pair)
		}
		return
	}

	if misc.Led != nil && addr >= 0xb0 && addr <= 0xc0 {
		value = misc.Led.Read(addr)
		return
	}

	switch addr {
	case 0x00:
		value = misc.ID
	case MISC_RESET:
	default:
		misc.badRead("misc", addr)
	}
	return
}

// Write a register.
func (misc *Misc) Write(addr uint32, value uint32) {
	addr &= 0xfff

	if pair, mask, ok := misc.timerRegister(addr); ok {
		if mask {
			misc.Timers.SetIntMask(pair, value)
		} else {
			misc.Timers.ClearIntStatus(pair, value)
		}
		return
	}

	if misc.Led != nil && addr >= 0xb0 && addr <= 0xc0 {
		misc.Led.Write(addr, value)
		return
	}

	switch addr {
	case MISC_RESET:
		if misc.Verbose {
			log.Printf("misc: reset request 0x%x", value)
		}
		if misc.OnReset != nil {
			misc.OnReset()
		}
	default:
		misc.badWrite("misc", addr, value)
	}
}
