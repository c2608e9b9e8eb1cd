package memory

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrRegionAlign   = errors.New(f("region not aligned"))
	ErrRegionRange   = errors.New(f("region outside address space"))
	ErrRegionOverlap = errors.New(f("region overlaps"))
	ErrRegionMissing = errors.New(f("region missing"))
	ErrLoadRange     = errors.New(f("load outside memory"))
)

// ErrRegion reports a problem with a named memory region.
type ErrRegion struct {
	Name string
	Err  error
}

func (err ErrRegion) Error() string {
	return f("region %v: %v", err.Name, err.Err)
}

func (err ErrRegion) Unwrap() error {
	return err.Err
}
