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

// Package blockdev presents a flash device as a device of erase-sector sized
// blocks which can be overwritten freely.
// Note that these are very low-level primitives: there is no wear levelling,
// and a failed write may leave a block erased.
package blockdev

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/flash"
)

// Flash is the flash device the blocks are stored on.
type Flash interface {
	Read(offset int64, buf []byte) error
	Write(ctx context.Context, offset int64, data []byte) error
	Erase(ctx context.Context, offset, size int64) error
	Size() int64
	Parameters() flash.Parameters
	PageLayout() []flash.PageLayout
}

// Device is a block device backed by flash.
type Device struct {
	dev        Flash
	blockSize  uint
	numBlocks  uint
	eraseValue byte
}

// New creates a block device over dev. dev must have a uniform page layout.
func New(dev Flash) (*Device, error) {
	pl := dev.PageLayout()
	if len(pl) != 1 || pl[0].Size <= 0 {
		return nil, fmt.Errorf("unsupported page layout %v", pl)
	}
	return &Device{
		dev:        dev,
		blockSize:  uint(pl[0].Size),
		numBlocks:  uint(pl[0].Count),
		eraseValue: dev.Parameters().EraseValue,
	}, nil
}

// BlockSize returns the size in bytes of each block, which is one erase
// sector.
func (d *Device) BlockSize() uint {
	return d.blockSize
}

// NumBlocks returns the number of blocks on the device.
func (d *Device) NumBlocks() uint {
	return d.numBlocks
}

func (d *Device) checkRange(lba uint, n int) error {
	bs := int(d.blockSize)
	blocks := uint((n + bs - 1) / bs)
	if lba > d.numBlocks || blocks > d.numBlocks-lba {
		return fmt.Errorf("%w: blocks [%d, %d) outside device of %d blocks", flash.ErrInvalidArgument, lba, lba+blocks, d.numBlocks)
	}
	return nil
}

// ReadBlocks reads data from the device at the given block address into b.
// b must be a multiple of the block size.
func (d *Device) ReadBlocks(lba uint, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if len(b)%int(d.blockSize) != 0 {
		return fmt.Errorf("%w: read of %d bytes is not a whole number of %d byte blocks", flash.ErrInvalidArgument, len(b), d.blockSize)
	}
	if err := d.checkRange(lba, len(b)); err != nil {
		return err
	}
	return d.dev.Read(int64(lba)*int64(d.blockSize), b)
}

// WriteBlocks writes the data in b to the device blocks starting at the given
// block address. If the final block to be written is partial, it is padded
// with the erase value.
//
// Each block is erased and then programmed. Blocks whose contents already
// match are left alone, and blocks which are entirely the erase value are only
// erased.
func (d *Device) WriteBlocks(ctx context.Context, lba uint, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := d.checkRange(lba, len(b)); err != nil {
		return err
	}
	bs := int(d.blockSize)
	if r := len(b) % bs; r != 0 {
		b = append(b[:len(b):len(b)], bytes.Repeat([]byte{d.eraseValue}, bs-r)...)
	}
	cur := make([]byte, bs)
	for ; len(b) > 0; b, lba = b[bs:], lba+1 {
		blk := b[:bs]
		off := int64(lba) * int64(bs)
		if err := d.dev.Read(off, cur); err != nil {
			return fmt.Errorf("block %d: %w", lba, err)
		}
		if bytes.Equal(cur, blk) {
			glog.V(2).Infof("block %d unchanged", lba)
			continue
		}
		if err := d.dev.Erase(ctx, off, int64(bs)); err != nil {
			return fmt.Errorf("block %d: %w", lba, err)
		}
		if d.blank(blk) {
			continue
		}
		if err := d.dev.Write(ctx, off, blk); err != nil {
			return fmt.Errorf("block %d: %w", lba, err)
		}
	}
	return nil
}

func (d *Device) blank(b []byte) bool {
	for _, v := range b {
		if v != d.eraseValue {
			return false
		}
	}
	return true
}

// ErrVerify is returned by Verify when the device contents differ.
var ErrVerify = errors.New("verification failed")

// Verify checks that the blocks starting at lba hold b, padded with the erase
// value as WriteBlocks would have.
func (d *Device) Verify(lba uint, b []byte) error {
	if err := d.checkRange(lba, len(b)); err != nil {
		return err
	}
	bs := int(d.blockSize)
	n := (len(b) + bs - 1) / bs * bs
	got := make([]byte, n)
	if err := d.ReadBlocks(lba, got); err != nil {
		return err
	}
	if i := mismatch(got[:len(b)], b); i >= 0 {
		return fmt.Errorf("%w: first difference at byte 0x%x of block %d", ErrVerify, i%bs, lba+uint(i/bs))
	}
	if !d.blank(got[len(b):]) {
		return fmt.Errorf("%w: padding of block %d is not erased", ErrVerify, lba+uint(len(b)/bs))
	}
	return nil
}

func mismatch(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}
