package device

const (
	FASTBOOT_WORDS = 0x1000 / 4 // Words of fastboot RAM.
)

// FastbootState is the snapshot state of the fastboot RAM.
type FastbootState struct {
	Mem [FASTBOOT_WORDS]uint32
}

// Fastboot is a small RAM that survives resets, used by the boot code to
// pass information across a reboot.
type Fastboot struct {
	Base
	FastbootState
}

var _ Device = (*Fastboot)(nil)

// Reset keeps the contents.
func (fb *Fastboot) Reset() {
}

// Read a word.
func (fb *Fastboot) Read(addr uint32) uint32 {
	return fb.Mem[(addr&0xfff)>>2]
}

// Write a word.
func (fb *Fastboot) Write(addr uint32, value uint32) {
	fb.Mem[(addr&0xfff)>>2] = value
}
