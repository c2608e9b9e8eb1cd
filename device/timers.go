package device

import (
	"github.com/ezrec/nspemu/bus"
	"github.com/ezrec/nspemu/irq"
	"github.com/ezrec/nspemu/snapshot"
)

const (
	TIMER_PAIRS       = 3      // Timer pairs.
	TIMER_COMPLETIONS = 6      // Completion values per pair.
	TIMER_RESET_VALUE = 0xffff // Counter value after reset.
	TIMER_RESET_DIV   = 10     // Divider after reset.

	TIMER_CONTROL_SELECT = 0x07 // Completion value that reloads the counter.
	TIMER_CONTROL_UP     = 0x08 // Count up instead of down.
	TIMER_CONTROL_STOP   = 0x10 // Counter stopped.
	TIMER_CONTROL_MASK   = 0x1f
)

// Timer is one 16-bit counter.
type Timer struct {
	Ticks      uint16 // Clock ticks since the last step.
	StartValue uint16 // Reload value, written at +0x00.
	Value      uint16 // Current value, read at +0x00.
	Divider    uint16 // The counter steps every Divider+1 ticks.
	Control    uint16 // Control register.
}

// TimerPair is two counters sharing the completion values and the
// interrupt registers.
type TimerPair struct {
	Timers          [2]Timer
	CompletionValue [TIMER_COMPLETIONS]uint16
	IntMask         uint8
	IntStatus       uint8
}

// TimersState is the snapshot state of the timers.
type TimersState struct {
	Pairs [TIMER_PAIRS]TimerPair
}

// Timers are the three timer pairs of the classic models. The pair
// interrupt registers live in the misc block.
type Timers struct {
	Base
	TimersState

	next [TIMER_PAIRS]int // Ticks until the pair status changes, or -1.
}

var _ Stateful = (*Timers)(nil)
var _ Ticker = (*Timers)(nil)

// Reset the timers.
func (tm *Timers) Reset() {
	tm.TimersState = TimersState{}
	for p := range tm.Pairs {
		for n := range tm.Pairs[p].Timers {
			t := &tm.Pairs[p].Timers[n]
			t.StartValue = TIMER_RESET_VALUE
			t.Value = TIMER_RESET_VALUE
			t.Divider = TIMER_RESET_DIV
			t.Control = TIMER_CONTROL_STOP
		}
	}
	tm.Refresh()
}

// Refresh recomputes the interrupt lines and the next expiry.
func (tm *Timers) Refresh() {
	for p := range tm.Pairs {
		tm.update(p)
	}
}

func (tm *Timers) update(p int) {
	pair := &tm.Pairs[p]
	tm.setLine(irq.LINE_TIMER0+p, pair.IntStatus&pair.IntMask != 0)
	tm.next[p] = pair.expiry()
}

// Pair returns the register block of one timer pair.
func (tm *Timers) Pair(p int) bus.Device {
	return &timerPort{timers: tm, pair: p}
}

type timerPort struct {
	timers *Timers
	pair   int
}

func (port *timerPort) Read(addr uint32) uint32 {
	return port.timers.read(port.pair, addr)
}

func (port *timerPort) Write(addr uint32, value uint32) {
	port.timers.write(port.pair, addr, value)
}

// Read a timer register. Addresses 0x00 to 0x3f are pair 0, 0x40 to 0x7f
// pair 1, and 0x80 to 0xbf pair 2.
func (tm *Timers) Read(addr uint32) uint32 {
	return tm.read(int(addr>>6)%TIMER_PAIRS, addr&0x3f)
}

// Write a timer register.
func (tm *Timers) Write(addr uint32, value uint32) {
	tm.write(int(addr>>6)%TIMER_PAIRS, addr&0x3f, value)
}

func (tm *Timers) read(p int, addr uint32) (value uint32) {
	pair := &tm.Pairs[p]
	addr &= 0x3f
	switch {
	case addr < 0x18:
		t := &pair.Timers[addr/0x0c]
		switch addr % 0x0c {
		case 0x00:
			value = uint32(t.Value)
		case 0x04:
			value = uint32(t.Divider)
		case 0x08:
			value = uint32(t.Control)
		}
	case addr < 0x30:
		value = uint32(pair.CompletionValue[(addr-0x18)>>2])
	default:
		tm.badRead("timer", addr)
	}
	return
}

func (tm *Timers) write(p int, addr uint32, value uint32) {
	pair := &tm.Pairs[p]
	addr &= 0x3f
	switch {
	case addr < 0x18:
		t := &pair.Timers[addr/0x0c]
		switch addr % 0x0c {
		case 0x00:
			t.StartValue = uint16(value)
			t.Value = uint16(value)
		case 0x04:
			t.Divider = uint16(value)
		case 0x08:
			t.Control = uint16(value & TIMER_CONTROL_MASK)
		}
	case addr < 0x30:
		pair.CompletionValue[(addr-0x18)>>2] = uint16(value)
	default:
		tm.badWrite("timer", addr, value)
		return
	}
	tm.update(p)
}

// IntStatus returns the interrupt status of a pair.
func (tm *Timers) IntStatus(p int) uint32 {
	return uint32(tm.Pairs[p].IntStatus)
}

// ClearIntStatus clears the interrupt status bits set in value.
func (tm *Timers) ClearIntStatus(p int, value uint32) {
	tm.Pairs[p].IntStatus &^= uint8(value)
	tm.update(p)
}

// IntMask returns the interrupt mask of a pair.
func (tm *Timers) IntMask(p int) uint32 {
	return uint32(tm.Pairs[p].IntMask)
}

// SetIntMask writes the interrupt mask of a pair.
func (tm *Timers) SetIntMask(p int, value uint32) {
	tm.Pairs[p].IntMask = uint8(value & 0x3f)
	tm.update(p)
}

// NextEvent returns the number of ticks until a pair interrupt status
// changes.
func (tm *Timers) NextEvent() (ticks int, ok bool) {
	for _, next := range tm.next {
		if next >= 0 && (!ok || next < ticks) {
			ticks = next
			ok = true
		}
	}
	return
}

// distance is the number of steps from one value to another, never zero.
func (t *Timer) distance(from uint16, to uint16) int {
	var d uint16
	if t.Control&TIMER_CONTROL_UP != 0 {
		d = to - from
	} else {
		d = from - to
	}
	if d == 0 {
		return 0x10000
	}
	return int(d)
}

// expiry computes the ticks until the first timer of the pair sets a
// status bit, or -1 if it never will.
func (pair *TimerPair) expiry() (ticks int) {
	t := &pair.Timers[0]
	ticks = -1

	if t.Control&TIMER_CONTROL_STOP != 0 {
		return
	}

	mode := t.Control & TIMER_CONTROL_SELECT
	if mode == 0 && t.Value == 0 {
		return
	}

	steps := -1
	for _, c := range pair.CompletionValue {
		d := t.distance(t.Value, c)
		if mode == 0 && d > t.distance(t.Value, 0) {
			continue
		}
		if steps < 0 || d < steps {
			steps = d
		}
	}

	if steps < 0 {
		return
	}

	period := int(t.Divider) + 1
	first := max(period-int(t.Ticks), 1)
	ticks = first + (steps-1)*period

	return
}

// step advances one counter by one step, and reports whether it reloaded.
func (pair *TimerPair) step(n int) (reloaded bool) {
	t := &pair.Timers[n]

	mode := t.Control & TIMER_CONTROL_SELECT
	if mode == 0 && t.Value == 0 {
		return
	}

	if t.Control&TIMER_CONTROL_UP != 0 {
		t.Value++
	} else {
		t.Value--
	}

	if n == 0 {
		for i, c := range pair.CompletionValue {
			if t.Value == c {
				pair.IntStatus |= 1 << i
			}
		}
	}

	if mode >= 1 && mode <= TIMER_COMPLETIONS && t.Value == pair.CompletionValue[mode-1] {
		t.Value = t.StartValue
		reloaded = true
	}
	return
}

// advance moves one counter by a number of steps, skipping straight over
// the values where nothing happens. Once the counter has reloaded twice the
// rest of the run repeats, so only the remainder of a reload cycle is walked.
func (pair *TimerPair) advance(n int, steps int) {
	t := &pair.Timers[n]
	mode := t.Control & TIMER_CONTROL_SELECT

	consumed := 0
	reloadAt := -1
	for steps > 0 {
		if mode == 0 && t.Value == 0 {
			return
		}

		// Steps to the next value with a side effect.
		next := 0x10000
		if mode == 0 {
			next = t.distance(t.Value, 0)
		}
		for i, c := range pair.CompletionValue {
			if n == 0 || int(mode) == i+1 {
				next = min(next, t.distance(t.Value, c))
			}
		}

		if steps < next {
			t.move(steps)
			return
		}

		t.move(next - 1)
		reloaded := pair.step(n)
		steps -= next
		consumed += next
		if reloaded {
			if reloadAt >= 0 {
				steps %= consumed - reloadAt
			}
			reloadAt = consumed
		}
	}
}

// move shifts the counter value in its counting direction.
func (t *Timer) move(steps int) {
	if t.Control&TIMER_CONTROL_UP != 0 {
		t.Value += uint16(steps)
	} else {
		t.Value -= uint16(steps)
	}
}

// Tick advances the timers by a number of clock ticks.
func (tm *Timers) Tick(ticks int) {
	for p := range tm.Pairs {
		pair := &tm.Pairs[p]
		changed := false
		for n := range pair.Timers {
			t := &pair.Timers[n]
			if t.Control&TIMER_CONTROL_STOP != 0 {
				continue
			}
			period := int(t.Divider) + 1
			total := int(t.Ticks) + ticks
			steps := total / period
			t.Ticks = uint16(total % period)
			pair.advance(n, steps)
			changed = changed || steps > 0
		}
		if changed {
			tm.update(p)
		}
	}
}

// Suspend saves the timer state.
func (tm *Timers) Suspend(snap *snapshot.Snapshot) error {
	return snapshot.Save(snap, "timers", &tm.TimersState)
}

// Resume restores the timer state.
func (tm *Timers) Resume(snap *snapshot.Snapshot) (err error) {
	err = snapshot.Load(snap, "timers", &tm.TimersState)
	if err != nil {
		return
	}
	tm.Refresh()
	return
}
