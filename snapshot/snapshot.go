// Package snapshot saves and restores emulator state.
//
// A Snapshot is a set of named records. Each participant encodes its
// fixed layout state structures into its own record, and restores them
// only after the whole record decoded cleanly.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"iter"
	"maps"
	"reflect"
	"slices"
)

// Participant is any component that has state in a snapshot.
type Participant interface {
	Suspend(snap *Snapshot) error
	Resume(snap *Snapshot) error
}

// Snapshot is a set of named state records.
type Snapshot struct {
	records map[string][]byte
}

// New creates an empty snapshot.
func New() (snap *Snapshot) {
	snap = &Snapshot{
		records: map[string][]byte{},
	}
	return
}

// Put stores a record, replacing any previous record with the same id.
func (snap *Snapshot) Put(id string, data []byte) {
	snap.records[id] = slices.Clone(data)
}

// Get returns a record.
func (snap *Snapshot) Get(id string) (data []byte, ok bool) {
	data, ok = snap.records[id]
	return
}

// Len returns the number of records.
func (snap *Snapshot) Len() int {
	return len(snap.records)
}

// Records iterates over the records in id order.
func (snap *Snapshot) Records() iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for _, id := range slices.Sorted(maps.Keys(snap.records)) {
			if !yield(id, snap.records[id]) {
				return
			}
		}
	}
}

// Size returns the encoded size of the states.
func Size(states ...any) (size int, err error) {
	for _, state := range states {
		n := binary.Size(state)
		if n < 0 {
			err = ErrStateLayout
			return
		}
		size += n
	}
	return
}

// Save encodes the states, which must be pointers to fixed layout values,
// into the record id.
func Save(snap *Snapshot, id string, states ...any) (err error) {
	buf := &bytes.Buffer{}
	for _, state := range states {
		err = binary.Write(buf, binary.LittleEndian, state)
		if err != nil {
			err = ErrRecord{ID: id, Err: ErrStateLayout}
			return
		}
	}

	snap.records[id] = buf.Bytes()

	return
}

// Load decodes the record id into the states. The states are not
// modified unless the whole record decodes.
func Load(snap *Snapshot, id string, states ...any) (err error) {
	data, ok := snap.records[id]
	if !ok {
		err = ErrRecord{ID: id, Err: ErrRecordMissing}
		return
	}

	size, err := Size(states...)
	if err != nil {
		err = ErrRecord{ID: id, Err: err}
		return
	}
	if size != len(data) {
		err = ErrRecord{ID: id, Err: ErrRecordSize}
		return
	}

	r := bytes.NewReader(data)
	fresh := make([]reflect.Value, len(states))
	for n, state := range states {
		v := reflect.ValueOf(state)
		if v.Kind() != reflect.Pointer {
			err = ErrRecord{ID: id, Err: ErrStateLayout}
			return
		}
		fresh[n] = reflect.New(v.Elem().Type())
		err = binary.Read(r, binary.LittleEndian, fresh[n].Interface())
		if err != nil {
			err = ErrRecord{ID: id, Err: err}
			return
		}
	}

	for n, state := range states {
		reflect.ValueOf(state).Elem().Set(fresh[n].Elem())
	}

	return
}

// Trivial is a participant whose whole state is a set of fixed layout
// values.
type Trivial struct {
	ID     string // Record id.
	States []any  // Pointers to the state values.
}

var _ Participant = (*Trivial)(nil)

// Suspend saves the states.
func (tr *Trivial) Suspend(snap *Snapshot) error {
	return Save(snap, tr.ID, tr.States...)
}

// Resume restores the states.
func (tr *Trivial) Resume(snap *Snapshot) error {
	return Load(snap, tr.ID, tr.States...)
}
