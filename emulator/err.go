package emulator

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrConfigType  = errors.New(f("wrong type"))
	ErrConfigValue = errors.New(f("value out of range"))
	ErrRomSize     = errors.New(f("boot ROM image too large"))
)

// ErrModel is an unknown model name.
type ErrModel string

func (err ErrModel) Error() string {
	return f("unknown model '%v'", string(err))
}

// ErrConfig indicates the configuration setting in error.
type ErrConfig struct {
	File string
	Key  string
	Err  error
}

func (err *ErrConfig) Error() string {
	if len(err.Key) == 0 {
		return f("%v: %v", err.File, err.Err)
	}
	return f("%v: %v: %v", err.File, err.Key, err.Err)
}

func (err *ErrConfig) Unwrap() error {
	return err.Err
}

// ErrResume is a failed resume. The state from before the resume has been
// put back.
type ErrResume struct {
	Err error
}

func (err *ErrResume) Error() string {
	return f("resume %v", err.Err)
}

func (err *ErrResume) Unwrap() error {
	return err.Err
}
