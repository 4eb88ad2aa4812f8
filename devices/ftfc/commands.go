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
	"context"
	"fmt"

	"github.com/golang/glog"
)

// ProgramPhrase programs up to MaxPhraseSize bytes of data at addr.
// Bytes beyond MaxPhraseSize are ignored.
//
// Programming can only clear bits; callers are expected to have erased the
// containing sector first.
func (c *Controller) ProgramPhrase(ctx context.Context, addr uint32, data []byte) error {
	const op = "program phrase"
	if addr >= MaxAddress {
		return fmt.Errorf("%s: address 0x%x does not fit the 24-bit command field", op, addr)
	}
	if s, err := c.ready(ctx); err != nil {
		return &CommandError{Op: op, Addr: addr, Status: s, Err: err}
	}
	c.load(CmdProgramPhrase, addr)
	for i := 0; i < len(data) && i < MaxPhraseSize; i++ {
		c.regs.Write8(FCCOB4+uintptr(i), data[i])
	}
	return c.execute(ctx, op, addr)
}

// EraseSector erases the sector containing addr.
func (c *Controller) EraseSector(ctx context.Context, addr uint32) error {
	const op = "erase sector"
	if addr >= MaxAddress {
		return fmt.Errorf("%s: address 0x%x does not fit the 24-bit command field", op, addr)
	}
	if s, err := c.ready(ctx); err != nil {
		return &CommandError{Op: op, Addr: addr, Status: s, Err: err}
	}
	c.load(CmdEraseSector, addr)
	return c.execute(ctx, op, addr)
}

// load writes the opcode and address into FCCOB0..FCCOB3.
func (c *Controller) load(cmd uint8, addr uint32) {
	c.regs.Write8(FCCOB0, cmd)
	c.regs.Write8(FCCOB1, uint8(addr>>16))
	c.regs.Write8(FCCOB2, uint8(addr>>8))
	c.regs.Write8(FCCOB3, uint8(addr))
}

func (c *Controller) execute(ctx context.Context, op string, addr uint32) error {
	glog.V(2).Infof("FTFC %s @ 0x%06x", op, addr)
	if s, fe, err := c.launch(ctx); err != nil {
		glog.Warningf("FTFC %s @ 0x%06x failed: FSTAT=%v FERSTAT=0x%02x: %v", op, addr, s, fe, err)
		return &CommandError{Op: op, Addr: addr, Status: s, ErrStatus: fe, Err: err}
	}
	return nil
}
