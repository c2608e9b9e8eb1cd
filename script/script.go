// Package script drives an emulator from Starlark programs.
//
// Scripts can peek and poke virtual and physical memory, control the MMU,
// advance the clock, feed the UART and take snapshots. Machine constants
// from the emulator are predeclared, as are the builtins:
//
//	read(va, width=4, access="read")    write(va, value, width=4)
//	pread(pa, width=4)                  pwrite(pa, value, width=4)
//	translate(va, access="read")        mmu(control=, ttb=, dacr=)
//	user(on=)                           flush()
//	advance(ticks)                      serial_in(data)
//	irq()                               line(n)
//	reset(hard=False)                   suspend(path=)
//	resume(snap_or_path)                dump()
//	mappings()
//
// A translation fault stops the script with an error wrapping the
// *mmu.Fault.
package script

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/nspemu/cpu"
	"github.com/ezrec/nspemu/emulator"
	"github.com/ezrec/nspemu/memory"
	"github.com/ezrec/nspemu/mmu"
	"github.com/ezrec/nspemu/snapshot"
)

// Script runs Starlark programs against an emulator.
type Script struct {
	Verbose  bool                // If set, logs every builtin call.
	Emulator *emulator.Emulator  // Emulator being driven.
	Output   io.Writer           // Destination of print(), os.Stdout if nil.
	Globals  starlark.StringDict // Globals of the last program run.
}

// Run executes a program against emu, printing to os.Stdout. If src is
// nil the program is read from filename.
func Run(emu *emulator.Emulator, filename string, src any) (err error) {
	s := &Script{Emulator: emu, Verbose: emu.Verbose}
	return s.Run(filename, src)
}

// Run executes a program. If src is nil the program is read from filename.
func (s *Script) Run(filename string, src any) (err error) {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(s.output(), msg)
		},
	}
	opts := syntax.FileOptions{
		While:     true,
		Recursion: true,
	}

	s.Globals, err = starlark.ExecFileOptions(&opts, thread, filename, src, s.Predeclared())
	return
}

func (s *Script) output() io.Writer {
	if s.Output == nil {
		return os.Stdout
	}
	return s.Output
}

// Predeclared returns the builtins and machine constants.
func (s *Script) Predeclared() (pred starlark.StringDict) {
	pred = starlark.StringDict{}

	for key, str := range s.Emulator.Defines() {
		value, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			continue
		}
		pred[key] = starlark.MakeUint64(value)
	}

	builtins := map[string]func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error){
		"read":      s.read,
		"write":     s.write,
		"pread":     s.pread,
		"pwrite":    s.pwrite,
		"translate": s.translate,
		"mmu":       s.mmu,
		"user":      s.user,
		"flush":     s.flush,
		"advance":   s.advance,
		"serial_in": s.serialIn,
		"irq":       s.irq,
		"line":      s.line,
		"reset":     s.reset,
		"suspend":   s.suspend,
		"resume":    s.resume,
		"dump":      s.dump,
		"mappings":  s.mappings,
	}
	for name, fn := range builtins {
		pred[name] = starlark.NewBuiltin(name, fn)
	}

	return
}

func (s *Script) trace(b *starlark.Builtin, args starlark.Tuple) {
	if s.Verbose {
		log.Printf("script: %v%v", b.Name(), args)
	}
}

// toUint32 converts a Starlark integer to an address or value.
func toUint32(v starlark.Int) (value uint32, err error) {
	if n, ok := v.Int64(); ok && n < 0 && n >= -(1<<31) {
		value = uint32(n)
		return
	}
	err = starlark.AsInt(v, &value)
	if err != nil {
		err = ErrArgument
	}
	return
}

func toWidth(n int) (width memory.Width, err error) {
	switch n {
	case 1, 2, 4:
		width = memory.Width(n)
	default:
		err = ErrWidth
	}
	return
}

func toAccess(name string) (access mmu.Access, err error) {
	for _, a := range []mmu.Access{mmu.ACCESS_READ, mmu.ACCESS_WRITE, mmu.ACCESS_FETCH} {
		if a.String() == name {
			access = a
			return
		}
	}
	err = ErrAccess
	return
}

func (s *Script) read(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var va starlark.Int
	size := 4
	name := "read"
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "va", &va, "width?", &size, "access?", &name)
	if err != nil {
		return
	}
	s.trace(b, args)

	addr, err := toUint32(va)
	if err != nil {
		return
	}
	width, err := toWidth(size)
	if err != nil {
		return
	}
	access, err := toAccess(name)
	if err != nil {
		return
	}

	value, err := s.Emulator.MMU.Read(addr, width, access)
	if err != nil {
		return
	}
	result = starlark.MakeUint(uint(value))
	return
}

func (s *Script) write(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var va, v starlark.Int
	size := 4
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "va", &va, "value", &v, "width?", &size)
	if err != nil {
		return
	}
	s.trace(b, args)

	addr, err := toUint32(va)
	if err != nil {
		return
	}
	value, err := toUint32(v)
	if err != nil {
		return
	}
	width, err := toWidth(size)
	if err != nil {
		return
	}

	err = s.Emulator.MMU.Write(addr, width, value)
	result = starlark.None
	return
}

func (s *Script) pread(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var pa starlark.Int
	size := 4
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "pa", &pa, "width?", &size)
	if err != nil {
		return
	}
	s.trace(b, args)

	addr, err := toUint32(pa)
	if err != nil {
		return
	}
	width, err := toWidth(size)
	if err != nil {
		return
	}

	result = starlark.MakeUint(uint(s.Emulator.Bus.Read(addr&^width.Mask(), width)))
	return
}

func (s *Script) pwrite(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var pa, v starlark.Int
	size := 4
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "pa", &pa, "value", &v, "width?", &size)
	if err != nil {
		return
	}
	s.trace(b, args)

	addr, err := toUint32(pa)
	if err != nil {
		return
	}
	value, err := toUint32(v)
	if err != nil {
		return
	}
	width, err := toWidth(size)
	if err != nil {
		return
	}

	s.Emulator.Bus.Write(addr&^width.Mask(), width, value)
	result = starlark.None
	return
}

func (s *Script) translate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var va starlark.Int
	name := "read"
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "va", &va, "access?", &name)
	if err != nil {
		return
	}
	s.trace(b, args)

	addr, err := toUint32(va)
	if err != nil {
		return
	}
	access, err := toAccess(name)
	if err != nil {
		return
	}

	pa, err := s.Emulator.MMU.Translate(addr, access)
	if err != nil {
		return
	}
	result = starlark.MakeUint(uint(pa))
	return
}

// mmu writes the given translation registers through the coprocessor, and
// returns all three as (control, ttb, dacr).
func (s *Script) mmu(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var control, ttb, dacr starlark.Value = starlark.None, starlark.None, starlark.None
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "control?", &control, "ttb?", &ttb, "dacr?", &dacr)
	if err != nil {
		return
	}
	s.trace(b, args)

	for _, reg := range []struct {
		crn   uint32
		value starlark.Value
	}{
		{2, ttb},
		{3, dacr},
		{1, control},
	} {
		if reg.value == starlark.None {
			continue
		}
		n, ok := reg.value.(starlark.Int)
		if !ok {
			err = ErrArgument
			return
		}
		var value uint32
		value, err = toUint32(n)
		if err != nil {
			return
		}
		err = s.Emulator.Cp15.MCR(0, reg.crn, 0, 0, value)
		if err != nil {
			return
		}
	}

	regs := s.Emulator.MMU.Registers()
	result = starlark.Tuple{
		starlark.MakeUint(uint(regs.Control)),
		starlark.MakeUint(uint(regs.TTB)),
		starlark.MakeUint(uint(regs.DomainAccess)),
	}
	return
}

func (s *Script) user(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var on starlark.Value = starlark.None
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "on?", &on)
	if err != nil {
		return
	}
	s.trace(b, args)

	if on != starlark.None {
		mode := cpu.MODE_SVC
		if on.Truth() {
			mode = cpu.MODE_USR
		}
		s.Emulator.Cp15.SetMode(mode)
	}

	result = starlark.Bool(s.Emulator.MMU.User())
	return
}

func (s *Script) flush(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackArgs(b.Name(), args, kwargs)
	if err != nil {
		return
	}
	s.trace(b, args)

	s.Emulator.MMU.Flush()
	result = starlark.None
	return
}

// advance runs the clock, and reports whether the machine reset.
func (s *Script) advance(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var ticks int
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "ticks", &ticks)
	if err != nil {
		return
	}
	if ticks < 0 {
		err = ErrArgument
		return
	}
	s.trace(b, args)

	result = starlark.Bool(s.Emulator.Advance(ticks))
	return
}

// serialIn queues bytes for the UART, returning how many were accepted.
func (s *Script) serialIn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var data string
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data)
	if err != nil {
		return
	}
	s.trace(b, args)

	count := 0
	for _, c := range []byte(data) {
		if !s.Emulator.SerialIn(c) {
			break
		}
		count++
	}
	result = starlark.MakeInt(count)
	return
}

// irq returns the (irq, fiq) requests to the CPU core.
func (s *Script) irq(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackArgs(b.Name(), args, kwargs)
	if err != nil {
		return
	}

	result = starlark.Tuple{
		starlark.Bool(s.Emulator.Irq.IRQ()),
		starlark.Bool(s.Emulator.Irq.FIQ()),
	}
	return
}

func (s *Script) line(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var n int
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "n", &n)
	if err != nil {
		return
	}
	if n < 0 || n >= 32 {
		err = ErrArgument
		return
	}

	result = starlark.Bool(s.Emulator.Irq.Line(n))
	return
}

func (s *Script) reset(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	hard := false
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "hard?", &hard)
	if err != nil {
		return
	}
	s.trace(b, args)

	if hard {
		s.Emulator.PowerOn()
	} else {
		s.Emulator.Reset()
	}
	result = starlark.None
	return
}

// suspend saves the machine to a file, or returns the snapshot when no
// path is given.
func (s *Script) suspend(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	path := ""
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "path?", &path)
	if err != nil {
		return
	}
	s.trace(b, args)

	if len(path) != 0 {
		var ouf *os.File
		ouf, err = os.Create(path)
		if err != nil {
			return
		}
		defer ouf.Close()
		err = s.Emulator.Save(ouf)
		result = starlark.None
		return
	}

	snap := snapshot.New()
	err = s.Emulator.Suspend(snap)
	if err != nil {
		return
	}
	result = &Snapshot{snap: snap}
	return
}

// resume restores the machine from a snapshot value or a file.
func (s *Script) resume(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var from starlark.Value
	err = starlark.UnpackArgs(b.Name(), args, kwargs, "from", &from)
	if err != nil {
		return
	}
	s.trace(b, args)

	switch from := from.(type) {
	case *Snapshot:
		err = s.Emulator.Resume(from.snap)
	case starlark.String:
		var inf *os.File
		inf, err = os.Open(string(from))
		if err != nil {
			return
		}
		defer inf.Close()
		err = s.Emulator.Load(inf)
	default:
		err = ErrArgument
	}
	result = starlark.None
	return
}

// dump returns the MMU mapping listing.
func (s *Script) dump(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackArgs(b.Name(), args, kwargs)
	if err != nil {
		return
	}

	buf := &bytes.Buffer{}
	err = s.Emulator.MMU.DumpTables(buf)
	result = starlark.String(buf.String())
	return
}

// mappings returns the peripheral windows as (name, start, size) tuples.
func (s *Script) mappings(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackArgs(b.Name(), args, kwargs)
	if err != nil {
		return
	}

	list := []starlark.Value{}
	for m := range s.Emulator.Bus.Mappings() {
		list = append(list, starlark.Tuple{
			starlark.String(m.Name),
			starlark.MakeUint(uint(m.Start)),
			starlark.MakeUint(uint(m.Size)),
		})
	}
	result = starlark.NewList(list)
	return
}
