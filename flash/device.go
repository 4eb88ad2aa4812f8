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

// Package flash provides block-level read, write and erase access to a single
// contiguous NOR flash region.
//
// Requests are validated against the region's geometry before any hardware is
// touched. Writes and erases are split into one controller command per phrase
// or sector; the first failing command aborts the request and the blocks
// already processed are left as they are.
package flash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"
)

// ErrInvalidArgument is returned for requests which are out of bounds or
// misaligned. Such requests have no side effects.
var ErrInvalidArgument = errors.New("invalid argument")

// Controller issues commands to the flash controller.
// Addresses are absolute physical addresses.
type Controller interface {
	// Init clears any error state left over from before the driver started.
	Init() error
	// ProgramPhrase programs data, at most one phrase, at addr.
	ProgramPhrase(ctx context.Context, addr uint32, data []byte) error
	// EraseSector erases the sector starting at addr.
	EraseSector(ctx context.Context, addr uint32) error
}

// Device is a flash region driven through a Controller.
type Device struct {
	cfg   Config
	ctrl  Controller
	array io.ReaderAt

	// mu serialises commands issued to ctrl.
	mu sync.Mutex
}

// New creates a device for the region described by cfg.
// array provides read access to the memory-mapped flash, with offset zero at
// cfg.FlashBase.
// The controller's stale error state is cleared before New returns.
func New(cfg Config, ctrl Controller, array io.ReaderAt) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := ctrl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise controller: %w", err)
	}
	glog.V(1).Infof("flash device @ 0x%06x: %d bytes, %d byte sectors, %d byte phrases", cfg.FlashBase, cfg.FlashSize, cfg.EraseBlock, cfg.WriteBlock)
	return &Device{
		cfg:   cfg,
		ctrl:  ctrl,
		array: array,
	}, nil
}

// Read copies len(buf) bytes starting at offset into buf.
// Reads go straight to the memory-mapped array and do not take the device
// lock.
func (d *Device) Read(offset int64, buf []byte) error {
	if err := d.checkBounds(offset, int64(len(buf))); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	if _, err := d.array.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("failed to read %d bytes at 0x%x: %w", len(buf), offset, err)
	}
	return nil
}

// Write programs data at offset. Both offset and len(data) must be multiples
// of the write block size.
// If a phrase fails to program, the error is returned and the phrases before
// it remain programmed.
func (d *Device) Write(ctx context.Context, offset int64, data []byte) error {
	l := int64(len(data))
	if err := d.checkBounds(offset, l); err != nil {
		return err
	}
	if err := checkAlignment("write", offset, l, d.cfg.WriteBlock); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	glog.V(1).Infof("write 0x%x+%d", offset, l)
	addr := d.cfg.FlashBase + uint32(offset)
	for done := int64(0); done < l; done += d.cfg.WriteBlock {
		if err := d.ctrl.ProgramPhrase(ctx, addr, data[done:done+d.cfg.WriteBlock]); err != nil {
			return fmt.Errorf("write aborted after %d of %d bytes: %w", done, l, err)
		}
		addr += uint32(d.cfg.WriteBlock)
	}
	return nil
}

// Erase erases size bytes starting at offset. Both must be multiples of the
// erase block size.
// If a sector fails to erase, the error is returned and the sectors before it
// remain erased.
func (d *Device) Erase(ctx context.Context, offset, size int64) error {
	if err := d.checkBounds(offset, size); err != nil {
		return err
	}
	if err := checkAlignment("erase", offset, size, d.cfg.EraseBlock); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	glog.V(1).Infof("erase 0x%x+%d", offset, size)
	addr := d.cfg.FlashBase + uint32(offset)
	for done := int64(0); done < size; done += d.cfg.EraseBlock {
		if err := d.ctrl.EraseSector(ctx, addr); err != nil {
			return fmt.Errorf("erase aborted after %d of %d bytes: %w", done, size, err)
		}
		addr += uint32(d.cfg.EraseBlock)
	}
	return nil
}

// Parameters returns the device's programming parameters.
func (d *Device) Parameters() Parameters {
	return d.cfg.Parameters()
}

// Size returns the size of the region in bytes.
func (d *Device) Size() int64 {
	return d.cfg.FlashSize
}

// PageLayout returns the page layout of the region. Devices have a single
// uniform layout entry.
func (d *Device) PageLayout() []PageLayout {
	return d.cfg.PageLayout()
}

// Config returns the geometry the device was created with.
func (d *Device) Config() Config {
	return d.cfg
}

func (d *Device) checkBounds(offset, length int64) error {
	if offset < 0 || length < 0 || offset > d.cfg.FlashSize || length > d.cfg.FlashSize-offset {
		return fmt.Errorf("%w: range 0x%x+%d outside device of %d bytes", ErrInvalidArgument, offset, length, d.cfg.FlashSize)
	}
	return nil
}

func checkAlignment(op string, offset, length, block int64) error {
	if offset%block != 0 || length%block != 0 {
		return fmt.Errorf("%w: %s of 0x%x+%d not aligned to %d byte blocks", ErrInvalidArgument, op, offset, length, block)
	}
	return nil
}
