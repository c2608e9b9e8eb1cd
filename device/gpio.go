package device

const (
	GPIO_PORTS           = 8                  // Ports of eight lines each.
	GPIO_RESET_INPUT     = 0x00001000071f001f // Input levels after reset.
	GPIO_RESET_DIRECTION = ^uint64(0)         // Every line is an input after reset.
)

// GpioState is the snapshot state of the GPIO block. Each register holds
// one byte per port.
type GpioState struct {
	Direction uint64
	Output    uint64
	Input     uint64
	Invert    uint64
	Sticky    uint64
	Unknown24 uint64
}

// Gpio is the general purpose I/O block, eight ports 0x40 bytes apart.
type Gpio struct {
	Base
	GpioState
}

var _ Device = (*Gpio)(nil)

// Reset the GPIO block.
func (gpio *Gpio) Reset() {
	gpio.GpioState = GpioState{
		Direction: GPIO_RESET_DIRECTION,
		Input:     GPIO_RESET_INPUT,
	}
}

func (gpio *Gpio) register(addr uint32) *uint64 {
	switch addr & 0x3f {
	case 0x10:
		return &gpio.Direction
	case 0x14:
		return &gpio.Output
	case 0x18:
		return &gpio.Input
	case 0x1c:
		return &gpio.Invert
	case 0x20:
		return &gpio.Sticky
	case 0x24:
		return &gpio.Unknown24
	}
	return nil
}

// SetInput drives an input line from the host.
func (gpio *Gpio) SetInput(port int, line int, on bool) {
	mask := uint64(1) << (port*8 + line)
	if on {
		gpio.Input |= mask
	} else {
		gpio.Input &^= mask
	}
}

// Read a GPIO register.
func (gpio *Gpio) Read(addr uint32) (value uint32) {
	reg := gpio.register(addr)
	if reg == nil || addr >= GPIO_PORTS*0x40 {
		gpio.badRead("gpio", addr)
		return
	}
	shift := (addr >> 6) * 8
	value = uint32(*reg>>shift) & 0xff
	return
}

// Write a GPIO register. The input register is read only.
func (gpio *Gpio) Write(addr uint32, value uint32) {
	reg := gpio.register(addr)
	if reg == nil || reg == &gpio.Input || addr >= GPIO_PORTS*0x40 {
		gpio.badWrite("gpio", addr, value)
		return
	}
	shift := (addr >> 6) * 8
	*reg = *reg&^(0xff<<shift) | uint64(value&0xff)<<shift
}
