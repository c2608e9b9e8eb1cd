// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/nspemu/emulator"
	nspio "github.com/ezrec/nspemu/io"
	"github.com/ezrec/nspemu/script"
	"github.com/ezrec/nspemu/translate"
)

const (
	STEP_INTERVAL = time.Millisecond // Wall time between clock steps.
)

// exitError drops the cancellation that ends every interactive session.
func exitError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run steps the clock until ctx is done, or until the transfer ends when
// no terminal is attached.
func run(ctx context.Context, emu *emulator.Emulator, ticks int, xm *nspio.Xmodem, interactive bool) (err error) {
	step := time.NewTicker(STEP_INTERVAL)
	defer step.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-step.C:
		}

		n := ticks
		if next, ok := emu.NextEvent(); ok && next > 0 && next < n {
			n = next
		}
		if emu.Advance(n) && emu.Verbose {
			log.Printf("nspemu: reset at tick %d", emu.Ticks)
		}

		if xm != nil {
			xm.Pump()
			done, xerr := xm.Finished()
			if done && !interactive {
				err = xerr
				return
			}
		}
	}
}

func main() {
	var config string
	var model string
	var rom string
	var scriptFile string
	var terminal bool
	var xmodem string
	var ticks int
	var save string
	var load string
	var dump bool
	var verbose bool
	var lang string

	flag.StringVar(&config, "config", "", "Starlark machine configuration")
	flag.StringVar(&model, "model", "", "Model: classic, cx or cx2")
	flag.StringVar(&rom, "rom", "", "Boot ROM image")
	flag.StringVar(&scriptFile, "script", "", "Starlark script to run against the machine")
	flag.BoolVar(&terminal, "terminal", false, "Attach the terminal to the serial port")
	flag.StringVar(&xmodem, "xmodem", "", "File to send over the serial port with XMODEM")
	flag.IntVar(&ticks, "ticks", 1000, "Timer ticks per clock step")
	flag.StringVar(&save, "save", "", "Save a snapshot on exit")
	flag.StringVar(&load, "load", "", "Load a snapshot on start")
	flag.BoolVar(&dump, "dump", false, "Dump the MMU mappings and peripheral map on exit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "lang", "", "Message language (BCP 47), host locale if empty")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if err := translate.SetLanguage(lang); err != nil {
		log.Fatalf("-lang: %v", err)
	}

	cfg := emulator.DefaultConfig(emulator.MODEL_CLASSIC)
	if len(config) != 0 {
		var err error
		cfg, err = emulator.LoadConfig(config, nil)
		if err != nil {
			log.Fatal(err)
		}
	}
	if len(model) != 0 {
		m, err := emulator.ParseModel(model)
		if err != nil {
			log.Fatalf("-model: %v", err)
		}
		cfg.Model = m
		cfg.RamSize = emulator.DefaultConfig(m).RamSize
	}
	cfg.Verbose = cfg.Verbose || verbose

	emu, err := emulator.NewEmulator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if len(rom) != 0 {
		inf, err := os.Open(rom)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
		err = emu.LoadRom(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
	}

	if len(load) != 0 {
		inf, err := os.Open(load)
		if err != nil {
			log.Fatalf("%v: %v", load, err)
		}
		err = emu.Load(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", load, err)
		}
	}

	var console io.Writer = os.Stdout
	var xm *nspio.Xmodem
	if len(xmodem) != 0 {
		data, err := os.ReadFile(xmodem)
		if err != nil {
			log.Fatalf("%v: %v", xmodem, err)
		}
		xm = &nspio.Xmodem{Verbose: cfg.Verbose, Data: data, Send: emu.SerialIn}
		console = io.MultiWriter(os.Stdout, xm)
	}
	emu.SerialOut = console

	if len(scriptFile) != 0 {
		err = script.Run(emu, scriptFile, nil)
		if err != nil {
			log.Fatalf("%v: %v", scriptFile, err)
		}
	}

	if terminal || xm != nil {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		ctx, cancel := context.WithCancel(ctx)

		if terminal {
			term := &nspio.Terminal{Verbose: cfg.Verbose, Input: os.Stdin, Sink: emu.SerialIn}
			if err := term.MakeRaw(); err != nil && cfg.Verbose {
				log.Printf("nspemu: %v", err)
			}
			defer term.Restore()

			g.Go(func() error {
				defer cancel()
				return term.Run(ctx)
			})
		}

		g.Go(func() error {
			defer cancel()
			return run(ctx, emu, ticks, xm, terminal)
		})

		err = exitError(g.Wait())
		if err != nil {
			log.Printf("nspemu: %v", err)
		}
	}

	if dump {
		err = emu.MMU.DumpTables(os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		for m := range emu.Bus.Mappings() {
			fmt.Printf("%08x-%08x %v\n", m.Start, m.Start+m.Size-1, m.Name)
		}
	}

	if len(save) != 0 {
		ouf, err := os.Create(save)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		defer ouf.Close()
		err = emu.Save(ouf)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
	}
}
