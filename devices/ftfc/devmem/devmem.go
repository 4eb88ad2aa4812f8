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

//go:build linux

// Package devmem maps physical memory ranges from a device file such as
// /dev/mem, so that the FTFC registers and flash array can be driven from a
// hosted Linux process.
package devmem

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/devices/ftfc/mmio"
	"golang.org/x/sys/unix"
)

// DefaultPath is the device file exposing physical memory.
const DefaultPath = "/dev/mem"

// Mapping is a mapped physical range.
type Mapping struct {
	page []byte
	mem  []byte
}

// Map maps size bytes at physical address phys from the file at path.
// phys need not be page aligned.
func Map(path string, phys int64, size int) (*Mapping, error) {
	if phys < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid range 0x%x+%d", phys, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	pageSize := int64(unix.Getpagesize())
	start := phys &^ (pageSize - 1)
	delta := int(phys - start)
	page, err := unix.Mmap(int(f.Fd()), start, delta+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map 0x%x+%d from %q: %w", phys, size, path, err)
	}
	glog.V(1).Infof("mapped %q 0x%x+%d", path, phys, size)
	return &Mapping{page: page, mem: page[delta : delta+size]}, nil
}

// OpenImage maps a flash image file of exactly size bytes. If the file does
// not exist it is created, filled with fill.
func OpenImage(path string, size int, fill byte) (*Mapping, error) {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		glog.Infof("Creating image %q", path)
		if err := os.WriteFile(path, bytes.Repeat([]byte{fill}, size), 0o644); err != nil {
			return nil, fmt.Errorf("failed to create image: %w", err)
		}
	case err != nil:
		return nil, err
	case fi.Size() != int64(size):
		return nil, fmt.Errorf("image %q is %d bytes, want %d", path, fi.Size(), size)
	}
	return Map(path, 0, size)
}

// Bytes returns the mapped range.
func (m *Mapping) Bytes() []byte {
	return m.mem
}

// Window returns a byte-wide I/O window over the mapped range.
func (m *Mapping) Window() *mmio.Window {
	return mmio.Over(m.mem)
}

// Sync flushes changes made through the mapping back to the file.
func (m *Mapping) Sync() error {
	return unix.Msync(m.page, unix.MS_SYNC)
}

// Close unmaps the range. The mapping must not be used afterwards.
func (m *Mapping) Close() error {
	if m.page == nil {
		return nil
	}
	err := unix.Munmap(m.page)
	m.page, m.mem = nil, nil
	return err
}
