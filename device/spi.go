package device

// Spi is the SPI controller. Nothing is attached to it, so transfers
// complete at once and read back as zero.
type Spi struct {
	Base
	Cx bool // CX register layout.
}

var _ Device = (*Spi)(nil)

// Reset has no state to clear.
func (spi *Spi) Reset() {
}

// Read a controller register.
func (spi *Spi) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if spi.Cx {
		switch addr {
		case 0x00, 0x04, 0x08:
		case 0x0c:
			value = 0x03 // Transmit FIFO empty, not full.
		default:
			spi.badRead("spi-cx", addr)
		}
		return
	}

	switch addr {
	case 0x00, 0x04, 0x0c:
	case 0x08:
		value = 0x20 // Idle.
	default:
		spi.badRead("spi", addr)
	}
	return
}

// Write a controller register.
func (spi *Spi) Write(addr uint32, value uint32) {
	addr &= 0xfff
	if addr > 0x0c {
		spi.badWrite("spi", addr, value)
	}
}
