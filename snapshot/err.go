package snapshot

import (
	"errors"

	"github.com/ezrec/nspemu/translate"
)

var f = translate.From

var (
	ErrRecordMissing = errors.New(f("record missing"))
	ErrRecordSize    = errors.New(f("record size mismatch"))
	ErrStateLayout   = errors.New(f("state has no fixed layout"))
	ErrMagic         = errors.New(f("not a snapshot"))
	ErrVersion       = errors.New(f("unsupported snapshot version"))
)

// ErrRecord reports a problem with a snapshot record.
type ErrRecord struct {
	ID  string
	Err error
}

func (err ErrRecord) Error() string {
	return f("snapshot record %v: %v", err.ID, err.Err)
}

func (err ErrRecord) Unwrap() error {
	return err.Err
}
