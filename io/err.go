package io

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	// Terminal errors
	ErrNotTerminal = errors.New(f("input is not a terminal"))

	// Xmodem errors
	ErrXmodemCancel  = errors.New(f("xmodem: cancelled by receiver"))
	ErrXmodemRetries = errors.New(f("xmodem: too many retries"))
	ErrXmodemEmpty   = errors.New(f("xmodem: nothing to send"))
)
