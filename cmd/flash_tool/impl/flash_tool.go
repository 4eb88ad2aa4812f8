// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// package impl is the implementation of a util to inspect, erase and program
// S32K1xx flash devices.
package impl

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/board"
	"github.com/google/s32k-flash/cmd/flash_tool/devices"
	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/google/s32k-flash/devices/ftfc/devmem"
	"github.com/google/s32k-flash/devices/ftfc/sim"
	"github.com/google/s32k-flash/flash"
	"github.com/google/s32k-flash/flash/blockdev"
	"github.com/google/s32k-flash/internal/client"
)

// FlashOpts encapsulates flash tool parameters.
type FlashOpts struct {
	BoardFile   string
	Node        string
	Backend     string
	Image       string
	DevMem      string
	EmulatorURL string
	Op          string
	Offset      int64
	Length      int64
	In          string
	Out         string
	Timeout     time.Duration
}

// DefaultConfig is the geometry the sim backend uses without a board file:
// the program flash of an S32K148.
var DefaultConfig = flash.Config{
	FlashBase:  0,
	FlashSize:  1536 * 1024,
	EraseBlock: 0x1000,
	WriteBlock: 8,
}

// Main runs the operation described by opts.
func Main(ctx context.Context, opts FlashOpts) error {
	return run(ctx, opts, os.Stdout)
}

func run(ctx context.Context, opts FlashOpts, w io.Writer) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.Op == "check" {
		return check(opts, w)
	}

	dev, closer, err := open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() {
		if err := closer(); err != nil {
			glog.Errorf("failed to close device: %v", err)
		}
	}()

	switch opts.Op {
	case "info":
		return info(dev, w)
	case "read":
		return read(dev, opts, w)
	case "write":
		return write(ctx, dev, opts)
	case "erase":
		return erase(ctx, dev, opts)
	case "program":
		return program(ctx, dev, opts)
	default:
		return errors.New("op must be one of: 'check', 'info', 'read', 'write', 'erase', 'program'")
	}
}

// check binds the board description and reports the flash devices on it.
func check(opts FlashOpts, w io.Writer) error {
	if opts.BoardFile == "" {
		return errors.New("check requires a board description")
	}
	bs, err := bindings(opts.BoardFile)
	if err != nil {
		return err
	}
	for _, b := range bs {
		d := ""
		if b.Designated {
			d = " (designated)"
		}
		fmt.Fprintf(w, "%s%s: flash 0x%06x+0x%x, %d byte sectors, %d byte phrases, FTFC @ 0x%08x\n", b.Name, d, b.Config.FlashBase, b.Config.FlashSize, b.Config.EraseBlock, b.Config.WriteBlock, b.ControllerBase)
	}
	glog.Infof("Board %q OK: %d flash device(s)", opts.BoardFile, len(bs))
	return nil
}

func bindings(p string) ([]board.Binding, error) {
	d, err := board.Load(p)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return board.Bind(d)
}

func binding(opts FlashOpts) (board.Binding, error) {
	bs, err := bindings(opts.BoardFile)
	if err != nil {
		return board.Binding{}, err
	}
	return board.Find(bs, opts.Node)
}

func nop() error { return nil }

// open returns the device selected by opts, and a func to release it.
func open(ctx context.Context, opts FlashOpts) (devices.Device, func() error, error) {
	switch opts.Backend {
	case "sim":
		return openSim(opts)
	case "devmem":
		return openDevMem(opts)
	case "remote":
		u, err := url.Parse(opts.EmulatorURL)
		if err != nil {
			return nil, nil, fmt.Errorf("emulator_url is invalid: %w", err)
		}
		c, err := client.New(ctx, u, nil)
		if err != nil {
			return nil, nil, err
		}
		return c, nop, nil
	default:
		return nil, nil, errors.New("backend must be one of: 'sim', 'devmem', 'remote'")
	}
}

func openSim(opts FlashOpts) (devices.Device, func() error, error) {
	cfg := DefaultConfig
	if opts.BoardFile != "" {
		b, err := binding(opts)
		if err != nil {
			return nil, nil, err
		}
		cfg = b.Config
	}
	closer := nop
	var storage []byte
	if opts.Image != "" {
		m, err := devmem.OpenImage(opts.Image, int(cfg.FlashSize), flash.EraseValue)
		if err != nil {
			return nil, nil, err
		}
		storage = m.Bytes()
		closer = func() error { return errors.Join(m.Sync(), m.Close()) }
	}
	s, err := sim.New(sim.Config{
		Base:       cfg.FlashBase,
		Size:       int(cfg.FlashSize),
		SectorSize: int(cfg.EraseBlock),
		PhraseSize: int(cfg.WriteBlock),
		Storage:    storage,
	})
	if err != nil {
		return nil, nil, errors.Join(err, closer())
	}
	dev, err := flash.New(cfg, ftfc.New(s), s)
	if err != nil {
		return nil, nil, errors.Join(err, closer())
	}
	return dev, closer, nil
}

// openDevMem drives the real controller through physical memory mappings of
// its register block and of the flash array.
func openDevMem(opts FlashOpts) (devices.Device, func() error, error) {
	if opts.BoardFile == "" {
		return nil, nil, errors.New("the devmem backend requires a board description")
	}
	b, err := binding(opts)
	if err != nil {
		return nil, nil, err
	}
	regs, err := devmem.Map(opts.DevMem, int64(b.ControllerBase), ftfc.WindowSize)
	if err != nil {
		return nil, nil, err
	}
	array, err := devmem.Map(opts.DevMem, int64(b.Config.FlashBase), int(b.Config.FlashSize))
	if err != nil {
		return nil, nil, errors.Join(err, regs.Close())
	}
	closer := func() error { return errors.Join(array.Close(), regs.Close()) }
	dev, err := flash.New(b.Config, ftfc.New(regs.Window()), array.Window())
	if err != nil {
		return nil, nil, errors.Join(err, closer())
	}
	return dev, closer, nil
}

func info(dev devices.Device, w io.Writer) error {
	// Local devices also know where the array is mapped.
	if l, ok := dev.(interface{ Config() flash.Config }); ok {
		fmt.Fprintf(w, "base: 0x%06x\n", l.Config().FlashBase)
	}
	p := dev.Parameters()
	fmt.Fprintf(w, "size: %d\nwrite block: %d\nerase value: 0x%02x\n", dev.Size(), p.WriteBlockSize, p.EraseValue)
	for _, l := range dev.PageLayout() {
		fmt.Fprintf(w, "pages: %d x %d\n", l.Count, l.Size)
	}
	return nil
}

// length returns the number of bytes an operation covers, defaulting to the
// rest of the device.
func length(dev devices.Device, opts FlashOpts) int64 {
	if opts.Length > 0 {
		return opts.Length
	}
	return dev.Size() - opts.Offset
}

func read(dev devices.Device, opts FlashOpts, w io.Writer) error {
	n := length(dev, opts)
	if n < 0 {
		return fmt.Errorf("offset 0x%x is beyond the end of the device", opts.Offset)
	}
	buf := make([]byte, n)
	if err := dev.Read(opts.Offset, buf); err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}
	if opts.Out == "" {
		d := hex.Dumper(w)
		if _, err := d.Write(buf); err != nil {
			return err
		}
		return d.Close()
	}
	if err := os.WriteFile(opts.Out, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", opts.Out, err)
	}
	glog.Infof("Read %d bytes at 0x%x into %q", n, opts.Offset, opts.Out)
	return nil
}

func readIn(opts FlashOpts) ([]byte, error) {
	if len(opts.In) == 0 {
		return nil, fmt.Errorf("must specify in for %s", opts.Op)
	}
	b, err := os.ReadFile(opts.In)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", opts.In, err)
	}
	return b, nil
}

func write(ctx context.Context, dev devices.Device, opts FlashOpts) error {
	b, err := readIn(opts)
	if err != nil {
		return err
	}
	if err := dev.Write(ctx, opts.Offset, b); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	glog.Infof("Wrote %d bytes at 0x%x", len(b), opts.Offset)
	return nil
}

func erase(ctx context.Context, dev devices.Device, opts FlashOpts) error {
	n := length(dev, opts)
	if err := dev.Erase(ctx, opts.Offset, n); err != nil {
		return fmt.Errorf("failed to erase: %w", err)
	}
	glog.Infof("Erased %d bytes at 0x%x", n, opts.Offset)
	return nil
}

// program writes a whole image, erasing as needed, and verifies it.
func program(ctx context.Context, dev devices.Device, opts FlashOpts) error {
	b, err := readIn(opts)
	if err != nil {
		return err
	}
	bd, err := blockdev.New(dev)
	if err != nil {
		return err
	}
	bs := int64(bd.BlockSize())
	if opts.Offset < 0 || opts.Offset%bs != 0 {
		return fmt.Errorf("%w: offset 0x%x is not a multiple of the %d byte sector size", flash.ErrInvalidArgument, opts.Offset, bs)
	}
	lba := uint(opts.Offset / bs)
	glog.Infof("Programming %d bytes at sector %d...", len(b), lba)
	if err := bd.WriteBlocks(ctx, lba, b); err != nil {
		return fmt.Errorf("failed to program: %w", err)
	}
	if err := bd.Verify(lba, b); err != nil {
		return err
	}
	glog.Info("Image programmed and verified.")
	return nil
}
