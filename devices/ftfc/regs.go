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

package ftfc

import (
	"fmt"
	"strings"

	"github.com/usbarmory/tamago/bits"
)

// DefaultBase is the physical address of the FTFC register block on the
// S32K14x family.
const DefaultBase uintptr = 0x40020000

// Register offsets from the controller base.
const (
	FSTAT   uintptr = 0x00
	FERSTAT uintptr = 0x2E

	// FCCOB0 holds the command opcode.
	FCCOB0 uintptr = 0x07
	// FCCOB1..FCCOB3 hold the 24-bit flash address, high byte first.
	FCCOB1 uintptr = 0x06
	FCCOB2 uintptr = 0x05
	FCCOB3 uintptr = 0x04
	// FCCOB4 is the first of MaxPhraseSize consecutive data registers.
	FCCOB4 uintptr = 0x0B

	// WindowSize is the number of bytes spanned by the register block.
	WindowSize = 0x30
)

// FSTAT bit positions.
const (
	CCIF     = 7
	RDCOLERR = 6
	ACCERR   = 5
	FPVIOL   = 4
)

// FSTAT bit masks.
const (
	StatusCCIF     uint8 = 1 << CCIF
	StatusRDCOLERR uint8 = 1 << RDCOLERR
	StatusACCERR   uint8 = 1 << ACCERR
	StatusFPVIOL   uint8 = 1 << FPVIOL

	// StatusErrors holds every FSTAT error flag. They are write-1-to-clear.
	StatusErrors = StatusRDCOLERR | StatusACCERR | StatusFPVIOL
)

// Command opcodes.
const (
	CmdProgramPhrase uint8 = 0x07
	CmdEraseSector   uint8 = 0x09
)

const (
	// MaxPhraseSize is the number of data registers available to a single
	// program command.
	MaxPhraseSize = 8
	// MaxAddress is one past the highest address a command can encode.
	MaxAddress = 1 << 24
)

// Registers provides byte-wide access to the controller's register block.
//
// Every call must reach the hardware: implementations must not cache reads
// or coalesce writes.
type Registers interface {
	// Read8 returns the register at the given offset from the block base.
	Read8(off uintptr) uint8
	// Write8 stores v into the register at the given offset.
	Write8(off uintptr, v uint8)
}

// Status is a snapshot of the FSTAT register.
type Status uint8

// Complete reports whether the command-complete flag is set.
func (s Status) Complete() bool {
	return s.isSet(CCIF)
}

// Errors returns only the error flags of the snapshot.
func (s Status) Errors() uint8 {
	return uint8(s) & StatusErrors
}

func (s Status) isSet(pos int) bool {
	v := uint32(s)
	return bits.IsSet(&v, pos)
}

// String returns the names of the set flags, e.g. "CCIF|FPVIOL".
func (s Status) String() string {
	var f []string
	for _, b := range []struct {
		pos  int
		name string
	}{
		{CCIF, "CCIF"},
		{RDCOLERR, "RDCOLERR"},
		{ACCERR, "ACCERR"},
		{FPVIOL, "FPVIOL"},
	} {
		if s.isSet(b.pos) {
			f = append(f, b.name)
		}
	}
	if len(f) == 0 {
		return fmt.Sprintf("0x%02x", uint8(s))
	}
	return strings.Join(f, "|")
}
