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

// Package impl is the implementation of the flash emulator server.
// It serves one simulated FTFC flash device over HTTP, optionally persisting
// the flash contents in an image file.
package impl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/board"
	ih "github.com/google/s32k-flash/cmd/emulator/internal/http"
	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/google/s32k-flash/devices/ftfc/devmem"
	"github.com/google/s32k-flash/devices/ftfc/sim"
	"github.com/google/s32k-flash/flash"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// DefaultConfig is the program flash of an S32K148, emulated when no board
// description is given.
var DefaultConfig = flash.Config{
	FlashBase:  0,
	FlashSize:  1536 * 1024,
	EraseBlock: 0x1000,
	WriteBlock: 8,
}

// EmulatorOpts encapsulates options for running the emulator.
type EmulatorOpts struct {
	ListenAddr string
	// BoardFile is a board description; the emulated device is taken from it.
	BoardFile string
	// Node names the device in BoardFile. Empty means the designated one.
	Node string
	// ImageFile, if set, holds the flash contents across runs. It is created
	// erased if it doesn't exist.
	ImageFile string
	// Latency is the number of status polls each command takes to complete.
	Latency int
	// MaxPolls bounds each busy-wait of the driver.
	MaxPolls uint64
}

// Emulator is a running emulated device.
type Emulator struct {
	Device *flash.Device
	Sim    *sim.FTFC

	image *devmem.Mapping
}

// New creates the emulated device described by opts.
func New(opts EmulatorOpts) (*Emulator, error) {
	cfg := DefaultConfig
	if opts.BoardFile != "" {
		d, err := board.Load(opts.BoardFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load board: %w", err)
		}
		bs, err := board.Bind(d)
		if err != nil {
			return nil, err
		}
		b, err := board.Find(bs, opts.Node)
		if err != nil {
			return nil, err
		}
		cfg = b.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Emulator{}
	var storage []byte
	if opts.ImageFile != "" {
		m, err := devmem.OpenImage(opts.ImageFile, int(cfg.FlashSize), flash.EraseValue)
		if err != nil {
			return nil, err
		}
		e.image = m
		storage = m.Bytes()
	}
	s, err := sim.New(sim.Config{
		Base:       cfg.FlashBase,
		Size:       int(cfg.FlashSize),
		SectorSize: int(cfg.EraseBlock),
		PhraseSize: int(cfg.WriteBlock),
		Latency:    opts.Latency,
		Storage:    storage,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	var copts []ftfc.Option
	if opts.MaxPolls > 0 {
		copts = append(copts, ftfc.WithMaxPolls(opts.MaxPolls))
	}
	dev, err := flash.New(cfg, ftfc.New(s, copts...), s)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Device, e.Sim = dev, s
	glog.Infof("Emulating %d bytes of flash at 0x%06x (%d byte sectors, %d byte phrases)", cfg.FlashSize, cfg.FlashBase, cfg.EraseBlock, cfg.WriteBlock)
	return e, nil
}

// Close flushes and releases the image file, if any.
func (e *Emulator) Close() error {
	if e.image == nil {
		return nil
	}
	err := errors.Join(e.image.Sync(), e.image.Close())
	e.image = nil
	return err
}

// Main runs the emulator until ctx is done.
func Main(ctx context.Context, opts EmulatorOpts) error {
	e, err := New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			glog.Errorf("failed to close image: %v", err)
		}
	}()

	r := mux.NewRouter()
	ih.NewServer(e.Device).RegisterHandlers(r)

	httpListener, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", opts.ListenAddr, err)
	}
	glog.Infof("Emulator listening on %s", httpListener.Addr())
	return serve(ctx, httpListener, r)
}

func serve(ctx context.Context, l net.Listener, h http.Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{Handler: h}
	g.Go(func() error {
		glog.Info("HTTP server goroutine started")
		defer glog.Info("HTTP server goroutine done")
		if err := srv.Serve(l); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// This goroutine brings down the HTTP server when ctx is done.
		glog.Info("HTTP server-shutdown goroutine started")
		defer glog.Info("HTTP server-shutdown goroutine done")
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}
