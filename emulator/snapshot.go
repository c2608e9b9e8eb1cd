package emulator

import (
	"io"
	"log"

	"github.com/ezrec/nspemu/memory"
	"github.com/ezrec/nspemu/snapshot"
)

// ramState saves the writable memory regions, one record per region.
// ROM is supplied by the host and is not part of a snapshot.
type ramState struct {
	mem *memory.Physical
}

var _ snapshot.Participant = (*ramState)(nil)

func (rs *ramState) Suspend(snap *snapshot.Snapshot) error {
	for region := range rs.mem.Regions() {
		if region.ReadOnly {
			continue
		}
		data, _ := rs.mem.Bytes(region.Base, region.Size)
		snap.Put("ram:"+region.Name, data)
	}
	return nil
}

func (rs *ramState) Resume(snap *snapshot.Snapshot) (err error) {
	for region := range rs.mem.Regions() {
		if region.ReadOnly {
			continue
		}
		id := "ram:" + region.Name
		data, ok := snap.Get(id)
		if !ok {
			err = snapshot.ErrRecord{ID: id, Err: snapshot.ErrRecordMissing}
			return
		}
		if len(data) != int(region.Size) {
			err = snapshot.ErrRecord{ID: id, Err: snapshot.ErrRecordSize}
			return
		}
	}

	for region := range rs.mem.Regions() {
		if region.ReadOnly {
			continue
		}
		data, _ := snap.Get("ram:" + region.Name)
		err = rs.mem.Load(region.Base, data)
		if err != nil {
			return
		}
	}

	return
}

// Suspend saves the whole machine into snap.
func (emu *Emulator) Suspend(snap *snapshot.Snapshot) (err error) {
	for part := range emu.Participants() {
		err = part.Suspend(snap)
		if err != nil {
			return
		}
	}
	return
}

// Resume restores the whole machine from snap. If any part of the machine
// cannot be restored, the machine is put back as it was and an ErrResume
// is returned. Either way the translation cache starts empty.
func (emu *Emulator) Resume(snap *snapshot.Snapshot) (err error) {
	backup := snapshot.New()
	err = emu.Suspend(backup)
	if err != nil {
		return
	}

	defer emu.MMU.Flush()

	for part := range emu.Participants() {
		err = part.Resume(snap)
		if err != nil {
			break
		}
	}
	if err == nil {
		emu.resetRequested = false
		return
	}

	for part := range emu.Participants() {
		if rerr := part.Resume(backup); rerr != nil {
			log.Printf("emulator: restore: %v", rerr)
		}
	}
	err = &ErrResume{Err: err}

	return
}

// Save writes a snapshot of the machine to w.
func (emu *Emulator) Save(w io.Writer) (err error) {
	snap := snapshot.New()
	err = emu.Suspend(snap)
	if err != nil {
		return
	}
	_, err = snap.WriteTo(w)
	return
}

// Load restores the machine from a snapshot read from r.
func (emu *Emulator) Load(r io.Reader) (err error) {
	snap := snapshot.New()
	_, err = snap.ReadFrom(r)
	if err != nil {
		return
	}
	return emu.Resume(snap)
}
