package device

var pl352ID = [8]uint8{0x52, 0x13, 0x14, 0x00, 0x0d, 0xf0, 0x05, 0xb1}

// MemctlCxState is the snapshot state of the CX memory controller.
type MemctlCxState struct {
	Status           uint32
	Config           uint32
	NandctlEccMemcfg uint32
}

// MemctlCx is the static and NAND memory controller of the CX models.
type MemctlCx struct {
	Base
	MemctlCxState
}

var _ Device = (*MemctlCx)(nil)

// Reset the controller.
func (mc *MemctlCx) Reset() {
	mc.MemctlCxState = MemctlCxState{}
}

// Read a controller register.
func (mc *MemctlCx) Read(addr uint32) (value uint32) {
	addr &= 0xffff
	switch {
	case addr == 0x0000:
		value = mc.Status | 0x80
	case addr == 0x0004:
		value = mc.Config
	case addr == 0x0304:
		value = mc.NandctlEccMemcfg
	case addr >= 0x0fe0 && addr < 0x1000:
		value = primeCellID(pl352ID, addr)
	case addr >= 0x1000 && addr < 0x2000:
		// SDRAM controller, reports ready.
		if addr&0xfff == 0 {
			value = 0x20
		}
	default:
		mc.badRead("memctl", addr)
	}
	return
}

// Write a controller register.
func (mc *MemctlCx) Write(addr uint32, value uint32) {
	addr &= 0xffff
	switch {
	case addr == 0x0004:
		mc.Config = value
	case addr == 0x0008:
		// Memory controller command: go to the requested state.
		switch value {
		case 0:
			mc.Status = 0
		case 1, 2, 4:
			mc.Status = 1
		}
	case addr == 0x0304:
		mc.NandctlEccMemcfg = value
	case addr >= 0x000c && addr < 0x0300, addr >= 0x1000 && addr < 0x2000:
		// Timing and SDRAM setup have no effect.
	default:
		mc.badWrite("memctl", addr, value)
	}
}

// SramCtl is the SRAM controller of the classic models.
type SramCtl struct {
	Base
}

var _ Device = (*SramCtl)(nil)

// Reset has no state to clear.
func (sc *SramCtl) Reset() {
}

// Read a controller register.
func (sc *SramCtl) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if isPrimeCellID(addr) {
		value = primeCellID(pl352ID, addr)
		return
	}
	sc.badRead("sramctl", addr)
	return
}

// Write a controller register.
func (sc *SramCtl) Write(addr uint32, value uint32) {
	sc.badWrite("sramctl", addr, value)
}

// SdramCtl is the SDRAM controller of the classic models. Its setup has
// no effect on emulation.
type SdramCtl struct {
	Base
}

var _ Device = (*SdramCtl)(nil)

// Reset has no state to clear.
func (sc *SdramCtl) Reset() {
}

// Read a controller register.
func (sc *SdramCtl) Read(addr uint32) (value uint32) {
	sc.badRead("sdramctl", addr)
	return
}

// Write a controller register.
func (sc *SdramCtl) Write(addr uint32, value uint32) {
	switch addr & 0xfff {
	case 0x00, 0x04, 0x08, 0x0c, 0x10, 0x14, 0x18, 0x1c:
	default:
		sc.badWrite("sdramctl", addr, value)
	}
}
