package device

// LedState is the snapshot state of the LED controller.
type LedState struct {
	Regs [5]uint32
}

// Led is the LED controller, registers 0xb0 to 0xc0.
type Led struct {
	Base
	LedState
}

var _ Device = (*Led)(nil)

// Reset the LED controller.
func (led *Led) Reset() {
	led.LedState = LedState{}
}

// Read a LED register.
func (led *Led) Read(addr uint32) (value uint32) {
	addr &= 0xfff
	if addr < 0xb0 || addr > 0xc0 {
		led.badRead("led", addr)
		return
	}
	value = led.Regs[(addr-0xb0)>>2]
	return
}

// Write a LED register.
func (led *Led) Write(addr uint32, value uint32) {
	addr &= 0xfff
	if addr < 0xb0 || addr > 0xc0 {
		led.badWrite("led", addr, value)
		return
	}
	led.Regs[(addr-0xb0)>>2] = value
}
