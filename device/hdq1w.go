package device

// Hdq1wState is the snapshot state of the HDQ/1-wire block.
type Hdq1wState struct {
	LcdContrast uint8
}

// Hdq1w is the HDQ/1-wire block, which on these models only holds the
// LCD contrast.
type Hdq1w struct {
	Base
	Hdq1wState
}

var _ Device = (*Hdq1w)(nil)

// Reset the block.
func (hdq *Hdq1w) Reset() {
	hdq.Hdq1wState = Hdq1wState{}
}

// Read a register.
func (hdq *Hdq1w) Read(addr uint32) (value uint32) {
	switch addr & 0xff {
	case 0x20:
		value = uint32(hdq.LcdContrast)
	default:
		hdq.badRead("hdq1w", addr)
	}
	return
}

// Write a register.
func (hdq *Hdq1w) Write(addr uint32, value uint32) {
	switch addr & 0xff {
	case 0x20:
		hdq.LcdContrast = uint8(value)
	default:
		hdq.badWrite("hdq1w", addr, value)
	}
}
