package script

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/ezrec/nspemu/snapshot"
)

// Snapshot is a machine snapshot held by a script.
type Snapshot struct {
	snap *snapshot.Snapshot
}

var _ starlark.Value = (*Snapshot)(nil)

func (s *Snapshot) String() string {
	return fmt.Sprintf("<snapshot %d records>", s.snap.Len())
}

func (s *Snapshot) Type() string {
	return "snapshot"
}

func (s *Snapshot) Freeze() {}

func (s *Snapshot) Truth() starlark.Bool {
	return starlark.True
}

func (s *Snapshot) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", s.Type())
}
