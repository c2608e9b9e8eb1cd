package script

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrWidth    = errors.New(f("width must be 1, 2 or 4"))
	ErrAccess   = errors.New(f("access must be read, write or fetch"))
	ErrArgument = errors.New(f("argument out of range"))
)
