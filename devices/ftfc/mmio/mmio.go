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

// Package mmio provides byte-wide access to memory-mapped windows, used for
// both the FTFC register block and the flash array itself.
package mmio

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/google/s32k-flash/devices/ftfc"
)

// Window is a fixed-size region of memory-mapped I/O.
// Every access is a single byte-wide load or store through a pointer, so the
// window may be backed by device memory.
type Window struct {
	base unsafe.Pointer
	size uintptr
}

var _ ftfc.Registers = &Window{}
var _ io.ReaderAt = &Window{}

// At returns a window of size bytes starting at the physical address addr.
// It is only meaningful when running without an MMU, or with addr identity
// mapped.
func At(addr, size uintptr) *Window {
	// addr is device memory outside the Go heap, so the garbage collector
	// never tracks or moves it. go vet still reports this conversion.
	return &Window{base: unsafe.Pointer(addr), size: size}
}

// Over returns a window over mem, which must stay mapped for as long as the
// window is used.
func Over(mem []byte) *Window {
	if len(mem) == 0 {
		return &Window{}
	}
	return &Window{base: unsafe.Pointer(unsafe.SliceData(mem)), size: uintptr(len(mem))}
}

// Size returns the size of the window in bytes.
func (w *Window) Size() uintptr {
	return w.size
}

func (w *Window) ptr(off uintptr) *uint8 {
	if off >= w.size {
		panic(fmt.Sprintf("mmio: offset 0x%x outside %d byte window", off, w.size))
	}
	return (*uint8)(unsafe.Add(w.base, off))
}

// load8 and store8 are kept out of line so that every call performs exactly
// one access: the compiler cannot merge, hoist or drop a load or store across
// a call it cannot see into. Byte-wide accesses are single bus cycles, so no
// atomic is needed for them not to tear.
//
//go:noinline
func load8(p *uint8) uint8 {
	return *p
}

//go:noinline
func store8(p *uint8, v uint8) {
	*p = v
}

// Read8 implements ftfc.Registers.
// It panics if off is outside the window.
func (w *Window) Read8(off uintptr) uint8 {
	return load8(w.ptr(off))
}

// Write8 implements ftfc.Registers.
// It panics if off is outside the window.
func (w *Window) Write8(off uintptr, v uint8) {
	store8(w.ptr(off), v)
}

// ReadAt implements io.ReaderAt, reading one byte at a time.
func (w *Window) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("mmio: negative offset")
	}
	if uint64(off) >= uint64(w.size) {
		return 0, io.EOF
	}
	n := 0
	for o := uintptr(off); n < len(p) && o < w.size; o++ {
		p[n] = load8(w.ptr(o))
		n++
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
