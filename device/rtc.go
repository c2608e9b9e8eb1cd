package device

import (
	"time"

	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

var pl031ID = [8]uint8{0x31, 0x10, 0x14, 0x00, 0x0d, 0xf0, 0x05, 0xb1}

// RtcState is the snapshot state of the real time clock. Only the offset
// from host time is kept, so guest time keeps running while suspended.
type RtcState struct {
	Offset    int64  // Guest seconds minus host seconds.
	Match     uint32 // Match register (PL031).
	IntMask   uint32 // Interrupt mask (PL031).
	IntStatus uint32 // Raw interrupt status (PL031).
}

// Rtc is the real time clock. The classic models have a simple counter;
// the CX models a PL031.
type Rtc struct {
	Base
	RtcState
	PL031 bool             // PL031 register layout.
	Now   func() time.Time // Host clock, time.Now if nil.
}

var _ Stateful = (*Rtc)(nil)
var _ Ticker = (*Rtc)(nil)

func (rtc *Rtc) now() int64 {
	if rtc.Now != nil {
		return rtc.Now().Unix()
	}
	return time.Now().Unix()
}

// Time returns the guest time in seconds.
func (rtc *Rtc) Time() uint32 {
	return uint32(rtc.now() + rtc.Offset)
}

// SetTime sets the guest time in seconds.
func (rtc *Rtc) SetTime(seconds uint32) {
	rtc.Offset = int64(seconds) - rtc.now()
}

// Reset the clock to follow host time.
func (rtc *Rtc) Reset() {
	rtc.RtcState = RtcState{}
	rtc.Refresh()
}

// Refresh recomputes the interrupt line. Only the PL031 has one.
func (rtc *Rtc) Refresh() {
	if rtc.PL031 {
		rtc.setLine(irq.LINE_RTC, rtc.IntStatus&rtc.IntMask != 0)
	}
}

// Tick checks the match register.
func (rtc *Rtc) Tick(ticks int) {
	if rtc.PL031 && rtc.IntStatus == 0 && rtc.Time() == rtc.Match {
		rtc.IntStatus = 1
		rtc.Refresh()
	}
}

// Read a clock register.
func (rtc *Rtc) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if !rtc.PL031 {
		switch addr {
		case 0x00:
			value = rtc.Time()
		case 0x04, 0x08, 0x0c, 0x10, 0x14:
		default:
			rtc.badRead("rtc", addr)
		}
		return
	}

	if isPrimeCellID(addr) {
		value = primeCellID(pl031ID, addr)
		return
	}

	switch addr {
	case 0x00, 0x08:
		value = rtc.Time()
	case 0x04:
		value = rtc.Match
	case 0x0c:
		value = 1
	case 0x10:
		value = rtc.IntMask
	case 0x14:
		value = rtc.IntStatus
	case 0x18:
		value = rtc.IntStatus & rtc.IntMask
	default:
		rtc.badRead("rtc", addr)
	}
	return
}

// Write a clock register.
func (rtc *Rtc) Write(addr uint32, value uint32) {
	addr &= 0xfff
	if !rtc.PL031 {
		switch addr {
		case 0x10:
			rtc.SetTime(value)
		case 0x04, 0x08, 0x0c:
		default:
			rtc.badWrite("rtc", addr, value)
		}
		return
	}

	switch addr {
	case 0x04:
		rtc.Match = value
	case 0x08:
		rtc.SetTime(value)
	case 0x0c:
	case 0x10:
		rtc.IntMask = value & 1
		rtc.Refresh()
	case 0x1c:
		rtc.IntStatus &^= value & 1
		rtc.Refresh()
	default:
		rtc.badWrite("rtc", addr, value)
	}
}

// Suspend saves the clock state.
func (rtc *Rtc) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "rtc", &rtc.RtcState)
}

// Resume restores the clock state.
func (rtc *Rtc) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "rtc", &rtc.RtcState)
	if err != nil {
		return
	}
	rtc.Refresh()
	return
}
