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

// Package board turns a hardware description of a board into validated flash
// device configurations.
//
// A description can come from a flattened devicetree blob or from a YAML
// board file. Either way, one flash device is bound per enabled node
// compatible with the S32K1xx flash binding, and exactly one of them must be
// designated as the board's flash controller.
package board

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/google/s32k-flash/flash"
)

// Compatible is the binding implemented by this driver.
const Compatible = "nxp,s32k1xx-flash"

// ControllerCompatible is the binding of the FTFC node which may contain the
// flash node.
const ControllerCompatible = "nxp,s32k1xx-ftfc"

// ErrInvalidBoard is returned when a description can't be bound.
var ErrInvalidBoard = errors.New("invalid board description")

// Node is one node of a board description.
type Node struct {
	// Name identifies the node. For devicetree nodes this is the full path.
	Name       string   `yaml:"Name"`
	Compatible []string `yaml:"Compatible"`
	// Status is "okay" or "disabled". Empty means okay.
	Status string `yaml:"Status"`
	// Reg is the address and size of the node's memory range.
	Reg []uint64 `yaml:"Reg"`
	// EraseBlockSize and WriteBlockSize are only used on flash nodes.
	EraseBlockSize uint64 `yaml:"EraseBlockSize"`
	WriteBlockSize uint64 `yaml:"WriteBlockSize"`
	// ControllerBase is the address of the FTFC register block driving the
	// flash. Zero means the node's controller parent, or ftfc.DefaultBase.
	ControllerBase uint64 `yaml:"ControllerBase"`
}

// Okay returns whether the node is enabled.
func (n Node) Okay() bool {
	return n.Status == "" || n.Status == "okay" || n.Status == "ok"
}

// IsCompatible returns whether the node claims compatibility with c.
func (n Node) IsCompatible(c string) bool {
	return slices.Contains(n.Compatible, c)
}

func (n Node) region() (uint64, uint64, error) {
	if len(n.Reg) < 2 {
		return 0, 0, fmt.Errorf("node %q: want address and size in Reg, got %v", n.Name, n.Reg)
	}
	return n.Reg[0], n.Reg[1], nil
}

// Chosen holds the board-wide selections.
type Chosen struct {
	// FlashController names the node of the designated flash device.
	FlashController string `yaml:"FlashController"`
	// SRAM names the node of the memory region code executes from.
	SRAM string `yaml:"SRAM"`
}

// Description is a board description.
type Description struct {
	Nodes  []Node `yaml:"Nodes"`
	Chosen Chosen `yaml:"Chosen"`
}

// Lookup returns the node with the given name.
func (d Description) Lookup(name string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Binding is one flash device bound from a description.
type Binding struct {
	Name   string
	Config flash.Config
	// ControllerBase is the address of the FTFC register block.
	ControllerBase uintptr
	// Designated is set on the board's designated flash controller.
	Designated bool
}

// Bind validates d and returns one binding per enabled flash node, in
// description order.
//
// Bind fails if there are no enabled flash nodes, if no node is designated,
// if the designated node is missing, disabled or of another binding, or if
// the code execution region overlaps a bound flash region.
func Bind(d Description) ([]Binding, error) {
	var bs []Binding
	for _, n := range d.Nodes {
		if !n.IsCompatible(Compatible) || !n.Okay() {
			continue
		}
		b, err := bindNode(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
		}
		b.Designated = n.Name == d.Chosen.FlashController
		bs = append(bs, b)
	}
	if len(bs) == 0 {
		return nil, fmt.Errorf("%w: no enabled node compatible with %q", ErrInvalidBoard, Compatible)
	}

	if d.Chosen.FlashController == "" {
		return nil, fmt.Errorf("%w: no designated flash controller", ErrInvalidBoard)
	}
	chosen, ok := d.Lookup(d.Chosen.FlashController)
	if !ok {
		return nil, fmt.Errorf("%w: designated flash controller %q not found", ErrInvalidBoard, d.Chosen.FlashController)
	}
	if !chosen.IsCompatible(Compatible) {
		return nil, fmt.Errorf("%w: designated flash controller %q is compatible with %q, not %q", ErrInvalidBoard, chosen.Name, chosen.Compatible, Compatible)
	}
	if !chosen.Okay() {
		return nil, fmt.Errorf("%w: designated flash controller %q is %s", ErrInvalidBoard, chosen.Name, chosen.Status)
	}

	if err := checkPlacement(d, bs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	for _, b := range bs {
		glog.V(1).Infof("bound %q: flash 0x%06x+%d, FTFC @ 0x%08x, designated=%t", b.Name, b.Config.FlashBase, b.Config.FlashSize, b.ControllerBase, b.Designated)
	}
	return bs, nil
}

// Designated returns the designated binding from bs.
func Designated(bs []Binding) (Binding, bool) {
	for _, b := range bs {
		if b.Designated {
			return b, true
		}
	}
	return Binding{}, false
}

// Find returns the binding called name from bs, or the designated binding if
// name is empty.
func Find(bs []Binding, name string) (Binding, error) {
	if name == "" {
		if b, ok := Designated(bs); ok {
			return b, nil
		}
		return Binding{}, errors.New("no designated flash device")
	}
	for _, b := range bs {
		if b.Name == name {
			return b, nil
		}
	}
	return Binding{}, fmt.Errorf("no flash device %q", name)
}

func bindNode(n Node) (Binding, error) {
	addr, size, err := n.region()
	if err != nil {
		return Binding{}, err
	}
	if addr > ftfc.MaxAddress || size > ftfc.MaxAddress {
		return Binding{}, fmt.Errorf("node %q: region 0x%x+0x%x beyond the command address space", n.Name, addr, size)
	}
	cfg := flash.Config{
		FlashBase:  uint32(addr),
		FlashSize:  int64(size),
		EraseBlock: int64(n.EraseBlockSize),
		WriteBlock: int64(n.WriteBlockSize),
	}
	if err := cfg.Validate(); err != nil {
		return Binding{}, fmt.Errorf("node %q: %v", n.Name, err)
	}
	base := ftfc.DefaultBase
	if n.ControllerBase != 0 {
		base = uintptr(n.ControllerBase)
	}
	return Binding{Name: n.Name, Config: cfg, ControllerBase: base}, nil
}

// checkPlacement enforces that flash commands are issued by code which does
// not live in a flash region being modified.
func checkPlacement(d Description, bs []Binding) error {
	if d.Chosen.SRAM == "" {
		glog.Warningf("board has no designated execution region, can't check code placement")
		return nil
	}
	n, ok := d.Lookup(d.Chosen.SRAM)
	if !ok {
		return fmt.Errorf("execution region %q not found", d.Chosen.SRAM)
	}
	start, size, err := n.region()
	if err != nil {
		return err
	}
	for _, b := range bs {
		fs, fe := uint64(b.Config.FlashBase), uint64(b.Config.FlashBase)+uint64(b.Config.FlashSize)
		if start < fe && fs < start+size {
			return fmt.Errorf("execution region %q [0x%x, 0x%x) overlaps flash %q [0x%x, 0x%x)", n.Name, start, start+size, b.Name, fs, fe)
		}
	}
	return nil
}
