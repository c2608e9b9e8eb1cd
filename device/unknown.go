package device

// Unknown is the undocumented block at 0x90080000. The boot code only
// needs it to accept writes.
type Unknown struct {
	Base
}

var _ Device = (*Unknown)(nil)

// Reset has no state to clear.
func (u *Unknown) Reset() {
}

// Read a register.
func (u *Unknown) Read(addr uint32) (value uint32) {
	u.badRead("unknown-9008", addr)
	return
}

// Write a register.
func (u *Unknown) Write(addr uint32, value uint32) {
	u.badWrite("unknown-9008", addr, value)
}
