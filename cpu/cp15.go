package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/nspemu/mmu"
	"github.com/ezrec/nspemu/snapshot"
)

// Mode is the processor mode field of the CPSR.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_USR = Mode(0x10) // usr
	MODE_FIQ = Mode(0x11) // fiq
	MODE_IRQ = Mode(0x12) // irq
	MODE_SVC = Mode(0x13) // svc
	MODE_ABT = Mode(0x17) // abt
	MODE_UND = Mode(0x1b) // und
	MODE_SYS = Mode(0x1f) // sys
)

const (
	CP15_ID         = 0x41069265 // ARM926EJ-S main id.
	CP15_CACHE_TYPE = 0x1d172172 // 16K instruction and data caches.

	CONTROL_SBO      = 0x00050078 // Control bits that read as one.
	CONTROL_WRITABLE = 0x0000f387 // Control bits that can be changed.

	CLEAN_TEST_DONE = 1 << 30 // Z flag for test and clean loops.
)

var _cp15_defines = map[string]string{
	"MODE_USR":    fmt.Sprintf("0x%x", int(MODE_USR)),
	"MODE_SVC":    fmt.Sprintf("0x%x", int(MODE_SVC)),
	"CONTROL_MMU": fmt.Sprintf("0x%x", mmu.CONTROL_MMU),
	"CONTROL_S":   fmt.Sprintf("0x%x", mmu.CONTROL_S),
	"CONTROL_R":   fmt.Sprintf("0x%x", mmu.CONTROL_R),
}

// Cp15State is the snapshot state of the coprocessor.
type Cp15State struct {
	Control      uint32 // c1
	TTB          uint32 // c2
	DomainAccess uint32 // c3
	DFSR         uint32 // c5, data fault status.
	IFSR         uint32 // c5, instruction fault status.
	FAR          uint32 // c6, fault address.
	PID          uint32 // c13, FCSE process id.
	Mode         uint32 // CPSR mode.
}

// Cp15 is the system control coprocessor.
type Cp15 struct {
	Verbose bool     // If set, logs register writes.
	MMU     *mmu.MMU // Translation unit controlled by c1, c2, c3 and c8.

	Cp15State
}

var _ snapshot.Participant = (*Cp15)(nil)

// New creates a coprocessor controlling m.
func New(m *mmu.MMU) (cp *Cp15) {
	cp = &Cp15{MMU: m}
	cp.Reset()
	return
}

// Defines returns an iterator over the coprocessor constants.
func (cp *Cp15) Defines() iter.Seq2[string, string] {
	return maps.All(_cp15_defines)
}

// Reset returns the coprocessor to its power on state, in supervisor mode.
func (cp *Cp15) Reset() {
	cp.Cp15State = Cp15State{
		Control: CONTROL_SBO,
		Mode:    uint32(MODE_SVC),
	}
	cp.Refresh()
}

// Refresh pushes the translation registers and mode to the MMU.
func (cp *Cp15) Refresh() {
	cp.MMU.SetRegisters(cp.Registers())
	cp.MMU.SetUser(Mode(cp.Mode) == MODE_USR)
}

// Registers returns the translation registers.
func (cp *Cp15) Registers() mmu.Registers {
	return mmu.Registers{
		Control:      cp.Control,
		TTB:          cp.TTB,
		DomainAccess: cp.DomainAccess,
	}
}

// SetMode reports a processor mode change.
func (cp *Cp15) SetMode(mode Mode) {
	if cp.Verbose && Mode(cp.Mode) != mode {
		log.Printf("cp15: mode %v", mode)
	}
	cp.Mode = uint32(mode)
	cp.MMU.SetUser(mode == MODE_USR)
}

// Abort records a translation fault in the fault status and address
// registers. Prefetch aborts only update the instruction fault status.
func (cp *Cp15) Abort(fault *mmu.Fault) {
	if fault.Prefetch {
		cp.IFSR = fault.Status
		return
	}
	cp.DFSR = fault.Status
	cp.FAR = fault.Addr
}

// MRC reads a coprocessor register.
func (cp *Cp15) MRC(op1, crn, crm, op2 uint32) (value uint32, err error) {
	undefined := func() {
		err = ErrRegister{Op1: op1, CRn: crn, CRm: crm, Op2: op2, Err: ErrUndefined}
	}

	if op1 != 0 {
		undefined()
		return
	}

	switch crn {
	case 0:
		switch op2 {
		case 0:
			value = CP15_ID
		case 1:
			value = CP15_CACHE_TYPE
		case 2:
			// No tightly coupled memory.
		default:
			undefined()
		}
	case 1:
		value = cp.Control
	case 2:
		value = cp.TTB
	case 3:
		value = cp.DomainAccess
	case 5:
		switch op2 {
		case 0:
			value = cp.DFSR
		case 1:
			value = cp.IFSR
		default:
			undefined()
		}
	case 6:
		value = cp.FAR
	case 7:
		// Test and clean: caches are never dirty.
		if (crm == 10 || crm == 14) && op2 == 3 {
			value = CLEAN_TEST_DONE
		} else {
			undefined()
		}
	case 9, 10, 15:
		// Lockdown and test registers.
	case 13:
		value = cp.PID
	default:
		undefined()
	}
	return
}

// MCR writes a coprocessor register.
func (cp *Cp15) MCR(op1, crn, crm, op2, value uint32) (err error) {
	if op1 != 0 {
		err = ErrRegister{Op1: op1, CRn: crn, CRm: crm, Op2: op2, Err: ErrUndefined}
		return
	}

	if cp.Verbose {
		log.Printf("cp15: c%d, c%d, %d = 0x%08x", crn, crm, op2, value)
	}

	switch crn {
	case 1:
		cp.Control = CONTROL_SBO | value&CONTROL_WRITABLE
		cp.MMU.SetControl(cp.Control)
	case 2:
		cp.TTB = value &^ 0x3fff
		cp.MMU.SetTTB(cp.TTB)
	case 3:
		cp.DomainAccess = value
		cp.MMU.SetDomainAccess(value)
	case 5:
		switch op2 {
		case 0:
			cp.DFSR = value & 0x1ff
		case 1:
			cp.IFSR = value & 0x1ff
		default:
			err = ErrRegister{Op1: op1, CRn: crn, CRm: crm, Op2: op2, Err: ErrUndefined}
		}
	case 6:
		cp.FAR = value
	case 7:
		// Cache maintenance and wait for interrupt leave translations alone.
	case 8:
		cp.MMU.InvalidateTLB()
	case 9, 10, 15:
	case 13:
		// FCSE relocation is not applied to translations.
		if value>>25 != 0 {
			err = ErrRegister{Op1: op1, CRn: crn, CRm: crm, Op2: op2, Err: ErrUnsupported}
			return
		}
		cp.PID = 0
	default:
		err = ErrRegister{Op1: op1, CRn: crn, CRm: crm, Op2: op2, Err: ErrUndefined}
	}
	return
}

// Suspend saves the coprocessor state.
func (cp *Cp15) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "cp15", &cp.Cp15State)
}

// Resume restores the coprocessor state and the MMU registers.
func (cp *Cp15) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "cp15", &cp.Cp15State)
	if err != nil {
		return
	}
	cp.Refresh()
	return
}
