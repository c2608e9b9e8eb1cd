package bus

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrBusSealed    = errors.New(f("bus sealed"))
	ErrRangeOverlap = errors.New(f("range overlaps"))
	ErrRangeInvalid = errors.New(f("range invalid"))
)

// ErrMapping reports a rejected device mapping.
type ErrMapping struct {
	Name  string
	Start uint32
	Err   error
}

func (err ErrMapping) Error() string {
	return f("map %v at 0x%08x: %v", err.Name, err.Start, err.Err)
}

func (err ErrMapping) Unwrap() error {
	return err.Err
}
