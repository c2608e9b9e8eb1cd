package io

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"
)

const (
	TERMINAL_ESCAPE = 0x1d // Ctrl-], leaves the console.
	TERMINAL_RETRY  = 5 * time.Millisecond
)

// Terminal forwards host keystrokes to the emulated UART.
type Terminal struct {
	Verbose bool
	Input   io.Reader       // Keystroke source, normally os.Stdin.
	Escape  byte            // Byte that ends Run, TERMINAL_ESCAPE if zero.
	Sink    func(byte) bool // Accepts a byte, false when the receiver is full.

	fd    int
	state *term.State
}

// MakeRaw puts the input terminal into raw mode. Restore undoes it.
func (t *Terminal) MakeRaw() (err error) {
	file, ok := t.Input.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		err = ErrNotTerminal
		return
	}

	t.fd = int(file.Fd())
	t.state, err = term.MakeRaw(t.fd)
	if err != nil {
		return
	}

	if t.Verbose {
		log.Printf("terminal: raw mode, Ctrl-] to exit")
	}
	return
}

// Restore returns the terminal to the mode it had before MakeRaw.
func (t *Terminal) Restore() (err error) {
	if t.state == nil {
		return
	}
	err = term.Restore(t.fd, t.state)
	t.state = nil
	return
}

func (t *Terminal) escape() byte {
	if t.Escape == 0 {
		return TERMINAL_ESCAPE
	}
	return t.Escape
}

type key struct {
	b   byte
	err error
}

// keys reads Input a byte at a time on its own goroutine, until a read
// fails or ctx is done. A read still blocked in Input when ctx ends is left
// behind, so callers never wait on it.
func (t *Terminal) keys(ctx context.Context) <-chan key {
	ch := make(chan key)
	send := func(k key) bool {
		select {
		case ch <- k:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)
		var one [1]byte
		for {
			n, err := t.Input.Read(one[:])
			if n > 0 && !send(key{b: one[0]}) {
				return
			}
			if err != nil {
				send(key{err: err})
				return
			}
		}
	}()

	return ch
}

// Run copies bytes from Input to Sink until the escape byte, end of input,
// or ctx is done. A full Sink is retried until it accepts the byte. Run
// returns as soon as ctx is done, even while Input is blocked.
func (t *Terminal) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := t.keys(ctx)
	for {
		if err = ctx.Err(); err != nil {
			return
		}

		var k key
		var ok bool
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case k, ok = <-keys:
		}
		if !ok {
			err = ctx.Err()
			return
		}

		if errors.Is(k.err, io.EOF) {
			return
		}
		if k.err != nil {
			err = k.err
			return
		}

		if k.b == t.escape() {
			if t.Verbose {
				log.Printf("terminal: escape")
			}
			return
		}

		for !t.Sink(k.b) {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case <-time.After(TERMINAL_RETRY):
			}
		}
	}
}
