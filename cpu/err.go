package cpu

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrUndefined   = errors.New(f("undefined coprocessor register"))
	ErrUnsupported = errors.New(f("unsupported coprocessor setting"))
)

// ErrRegister is a failed coprocessor access.
type ErrRegister struct {
	Op1 uint32
	CRn uint32
	CRm uint32
	Op2 uint32
	Err error
}

func (err ErrRegister) Error() string {
	return f("p15, %d, c%d, c%d, %d: %v", err.Op1, err.CRn, err.CRm, err.Op2, err.Err)
}

func (err ErrRegister) Unwrap() error {
	return err.Err
}
