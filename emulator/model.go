package emulator

import (
	"strings"
)

// Model is a calculator hardware revision.
type Model int

//go:generate go tool stringer -linecomment -type=Model
const (
	MODEL_CLASSIC = Model(iota) // classic
	MODEL_CX                    // cx
	MODEL_CX2                   // cx2
)

// Memory layout.
const (
	ROM_BASE   = 0x00000000
	ROM_SIZE   = 0x00080000 // Boot ROM.
	SDRAM_BASE = 0x10000000
	SRAM_BASE  = 0xa4000000
	SRAM_SIZE  = 0x00040000 // On chip SRAM.

	SDRAM_SIZE_CLASSIC = 32 << 20
	SDRAM_SIZE_CX      = 64 << 20

	BLOCK_SIZE = 0x10000 // Size of a peripheral register window.
)

// IsCx reports whether the model has the CX peripheral set.
func (m Model) IsCx() bool {
	return m != MODEL_CLASSIC
}

// ParseModel converts a model name to a Model.
func ParseModel(name string) (model Model, err error) {
	for m := MODEL_CLASSIC; m <= MODEL_CX2; m++ {
		if strings.EqualFold(name, m.String()) {
			model = m
			return
		}
	}
	err = ErrModel(name)
	return
}

// Config selects the emulated machine.
type Config struct {
	Model   Model  // Hardware revision.
	RamSize uint32 // SDRAM size in bytes.
	Verbose bool   // Enables verbose logging in every component.
}

// DefaultConfig returns the stock configuration of a model.
func DefaultConfig(model Model) (cfg Config) {
	cfg = Config{
		Model:   model,
		RamSize: SDRAM_SIZE_CLASSIC,
	}
	if model.IsCx() {
		cfg.RamSize = SDRAM_SIZE_CX
	}
	return
}
