package mmu

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrTranslation = errors.New(f("translation fault"))
	ErrDomain      = errors.New(f("domain fault"))
	ErrPermission  = errors.New(f("permission fault"))
	ErrExternal    = errors.New(f("external abort"))
)
