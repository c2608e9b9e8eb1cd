package emulator

import (
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/nspemu/memory"
)

const (
	RAM_SIZE_MAX = 0x40000000 // Largest SDRAM that fits below the SRAM.
)

// LoadConfig executes a Starlark configuration file. The globals it
// defines select the machine:
//
//	model = "cx"          # "classic", "cx" or "cx2"
//	ram_size = 64 * MB    # SDRAM size
//	verbose = False
//
// Settings that are not defined keep the defaults of the model. If src is
// nil the file is read from filename.
func LoadConfig(filename string, src any) (cfg Config, err error) {
	thread := &starlark.Thread{Name: "config"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"KB": starlark.MakeInt(1 << 10),
		"MB": starlark.MakeInt(1 << 20),
	}

	globals, err := starlark.ExecFileOptions(&opts, thread, filename, src, pred)
	if err != nil {
		err = &ErrConfig{File: filename, Err: err}
		return
	}

	cfg = DefaultConfig(MODEL_CLASSIC)

	if value, ok := globals["model"]; ok {
		name, ok := starlark.AsString(value)
		if !ok {
			err = &ErrConfig{File: filename, Key: "model", Err: ErrConfigType}
			return
		}
		var model Model
		model, err = ParseModel(name)
		if err != nil {
			err = &ErrConfig{File: filename, Key: "model", Err: err}
			return
		}
		cfg = DefaultConfig(model)
	}

	if value, ok := globals["ram_size"]; ok {
		var size int64
		err = starlark.AsInt(value, &size)
		if err != nil {
			err = &ErrConfig{File: filename, Key: "ram_size", Err: ErrConfigType}
			return
		}
		if size <= 0 || size > RAM_SIZE_MAX || size%memory.REGION_ALIGN != 0 {
			err = &ErrConfig{File: filename, Key: "ram_size", Err: ErrConfigValue}
			return
		}
		cfg.RamSize = uint32(size)
	}

	if value, ok := globals["verbose"]; ok {
		b, ok := value.(starlark.Bool)
		if !ok {
			err = &ErrConfig{File: filename, Key: "verbose", Err: ErrConfigType}
			return
		}
		cfg.Verbose = bool(b)
	}

	return
}
