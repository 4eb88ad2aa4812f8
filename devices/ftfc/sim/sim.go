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

// Package sim provides a simulated FTFC controller together with the flash
// array it manages.
//
// The simulation models the parts of the controller the driver relies on:
// write-1-to-clear status flags, command launch through CCIF, a configurable
// busy period, NOR programming semantics, sector protection and injected
// faults. It is used by tests and by the emulator.
package sim

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/usbarmory/tamago/bits"
)

// ErasedValue is the value every byte of an erased sector reads back as.
const ErasedValue = 0xFF

// Config describes the simulated part.
type Config struct {
	// Base is the address at which the flash array is mapped.
	Base uint32
	// Size is the size of the flash array in bytes.
	Size int
	// SectorSize is the size of the erasable unit in bytes.
	SectorSize int
	// PhraseSize is the number of bytes programmed by one command.
	// Zero means ftfc.MaxPhraseSize.
	PhraseSize int
	// Latency is the number of FSTAT reads for which a launched command
	// keeps CCIF clear.
	Latency int
	// Storage, if set, backs the flash array and is used as-is. It must be
	// Size bytes long. Otherwise a freshly erased array is allocated.
	Storage []byte
}

// Command records a command the simulated controller executed.
type Command struct {
	Opcode uint8
	Addr   uint32
	// Data holds the phrase of a program command.
	Data []byte
}

type span struct {
	off, size int
}

func (s span) overlaps(off, size int) bool {
	return off < s.off+s.size && s.off < off+size
}

// FTFC is a simulated controller and flash array.
// It implements ftfc.Registers, and io.ReaderAt over the flash array with
// offsets relative to Config.Base.
type FTFC struct {
	cfg Config

	// mu guards everything below.
	mu        sync.Mutex
	mem       []byte
	regs      [ftfc.WindowSize]uint8
	pending   bool
	busy      int
	hang      bool
	protected []span
	faults    []fault
	commands  []Command

	regReads, regWrites, arrayReads int
}

type fault struct {
	fstat, ferstat uint8
}

var _ ftfc.Registers = &FTFC{}
var _ io.ReaderAt = &FTFC{}

// New creates a simulated controller, idle and with no error flags set.
func New(cfg Config) (*FTFC, error) {
	if cfg.PhraseSize == 0 {
		cfg.PhraseSize = ftfc.MaxPhraseSize
	}
	if cfg.Size <= 0 || cfg.SectorSize <= 0 || cfg.PhraseSize <= 0 {
		return nil, fmt.Errorf("invalid geometry: size=%d sector=%d phrase=%d", cfg.Size, cfg.SectorSize, cfg.PhraseSize)
	}
	if cfg.Size%cfg.SectorSize != 0 || cfg.SectorSize%cfg.PhraseSize != 0 {
		return nil, fmt.Errorf("invalid geometry: size=%d sector=%d phrase=%d are not nested multiples", cfg.Size, cfg.SectorSize, cfg.PhraseSize)
	}
	if cfg.PhraseSize > ftfc.MaxPhraseSize {
		return nil, fmt.Errorf("phrase size %d exceeds the %d data registers", cfg.PhraseSize, ftfc.MaxPhraseSize)
	}
	f := &FTFC{cfg: cfg}
	if cfg.Storage != nil {
		if len(cfg.Storage) != cfg.Size {
			return nil, fmt.Errorf("storage is %d bytes, want %d", len(cfg.Storage), cfg.Size)
		}
		f.mem = cfg.Storage
	} else {
		f.mem = make([]byte, cfg.Size)
		fill(f.mem, ErasedValue)
	}
	f.regs[ftfc.FSTAT] = ftfc.StatusCCIF
	return f, nil
}

// Read8 implements ftfc.Registers.
func (f *FTFC) Read8(off uintptr) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regReads++
	if off >= ftfc.WindowSize {
		return 0
	}
	if off == ftfc.FSTAT && f.pending && !f.hang {
		if f.busy > 0 {
			f.busy--
		} else {
			f.complete()
		}
	}
	return f.regs[off]
}

// Write8 implements ftfc.Registers.
func (f *FTFC) Write8(off uintptr, v uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regWrites++
	if off >= ftfc.WindowSize {
		return
	}
	switch {
	case off == ftfc.FSTAT:
		f.regs[off] &^= v & ftfc.StatusErrors
		if v&ftfc.StatusCCIF != 0 {
			f.launch()
		}
	case off == ftfc.FERSTAT:
		f.regs[off] &^= v
	case off >= ftfc.FCCOB3 && off < ftfc.FCCOB4+ftfc.MaxPhraseSize:
		// FCCOB is only writable while no command is running.
		if f.idle() {
			f.regs[off] = v
		}
	default:
		f.regs[off] = v
	}
}

// ReadAt implements io.ReaderAt over the flash array.
func (f *FTFC) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arrayReads++
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(f.mem)) {
		return 0, io.EOF
	}
	n := copy(p, f.mem[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *FTFC) idle() bool {
	v := uint32(f.regs[ftfc.FSTAT])
	return bits.IsSet(&v, ftfc.CCIF)
}

// launch starts the command held in FCCOB. Like the hardware, a launch is
// ignored while a command is running or an access/protection error is
// pending.
func (f *FTFC) launch() {
	if !f.idle() {
		return
	}
	if f.regs[ftfc.FSTAT]&(ftfc.StatusACCERR|ftfc.StatusFPVIOL) != 0 {
		return
	}
	v := uint32(f.regs[ftfc.FSTAT])
	bits.Clear(&v, ftfc.CCIF)
	f.regs[ftfc.FSTAT] = uint8(v)
	f.pending = true
	f.busy = f.cfg.Latency
}

// complete executes the pending command and raises CCIF.
func (f *FTFC) complete() {
	f.pending = false
	fstat, ferstat := f.execute()
	v := uint32(f.regs[ftfc.FSTAT] | fstat)
	bits.Set(&v, ftfc.CCIF)
	f.regs[ftfc.FSTAT] = uint8(v)
	f.regs[ftfc.FERSTAT] |= ferstat
}

// execute performs the command in FCCOB, returning the error flags it raises.
func (f *FTFC) execute() (uint8, uint8) {
	cmd := Command{
		Opcode: f.regs[ftfc.FCCOB0],
		Addr:   uint32(f.regs[ftfc.FCCOB1])<<16 | uint32(f.regs[ftfc.FCCOB2])<<8 | uint32(f.regs[ftfc.FCCOB3]),
	}
	if cmd.Opcode == ftfc.CmdProgramPhrase {
		cmd.Data = append([]byte(nil), f.regs[ftfc.FCCOB4:ftfc.FCCOB4+uintptr(f.cfg.PhraseSize)]...)
	}
	f.commands = append(f.commands, cmd)

	if len(f.faults) > 0 {
		ft := f.faults[0]
		f.faults = f.faults[1:]
		if ft.fstat != 0 || ft.ferstat != 0 {
			return ft.fstat, ft.ferstat
		}
	}

	off := int(cmd.Addr) - int(f.cfg.Base)
	var unit int
	switch cmd.Opcode {
	case ftfc.CmdEraseSector:
		unit = f.cfg.SectorSize
	case ftfc.CmdProgramPhrase:
		unit = f.cfg.PhraseSize
	default:
		return ftfc.StatusACCERR, 0
	}
	if off < 0 || off+unit > len(f.mem) || off%unit != 0 {
		return ftfc.StatusACCERR, 0
	}
	for _, p := range f.protected {
		if p.overlaps(off, unit) {
			return ftfc.StatusFPVIOL, 0
		}
	}
	if cmd.Opcode == ftfc.CmdEraseSector {
		fill(f.mem[off:off+unit], ErasedValue)
		return 0, 0
	}
	for i, b := range cmd.Data {
		f.mem[off+i] &= b
	}
	return 0, 0
}

// Protect makes commands touching [off, off+size) of the array fail with
// FPVIOL.
func (f *FTFC) Protect(off, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.protected = append(f.protected, span{off: off, size: size})
}

// InjectFault queues a fault for a future command: the n-th command executed
// from now (counting from 1) raises the given FSTAT and FERSTAT flags instead
// of taking effect. n below 1 means the next command.
func (f *FTFC) InjectFault(n int, fstat, ferstat uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n = max(n, 1)
	for len(f.faults) < n {
		f.faults = append(f.faults, fault{})
	}
	f.faults[n-1] = fault{fstat: fstat & ftfc.StatusErrors, ferstat: ferstat}
}

// SetErrors raises error flags immediately, as if left behind by an earlier
// command.
func (f *FTFC) SetErrors(fstat, ferstat uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[ftfc.FSTAT] |= fstat & ftfc.StatusErrors
	f.regs[ftfc.FERSTAT] |= ferstat
}

// Hang stops launched commands from ever completing while h is true.
func (f *FTFC) Hang(h bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hang = h
}

// Status returns FSTAT without side effects.
func (f *FTFC) Status() ftfc.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ftfc.Status(f.regs[ftfc.FSTAT])
}

// ErrStatus returns FERSTAT without side effects.
func (f *FTFC) ErrStatus() uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[ftfc.FERSTAT]
}

// Commands returns the commands executed so far.
func (f *FTFC) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// Accesses returns the number of register reads, register writes and array
// reads performed so far.
func (f *FTFC) Accesses() (regReads, regWrites, arrayReads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regReads, f.regWrites, f.arrayReads
}

// Snapshot returns a copy of the flash array.
func (f *FTFC) Snapshot() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.mem...)
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
