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

package board

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/u-root/u-root/pkg/dt"
)

// Devicetree property names.
const (
	propCompatible     = "compatible"
	propStatus         = "status"
	propReg            = "reg"
	propAddressCells   = "#address-cells"
	propSizeCells      = "#size-cells"
	propEraseBlockSize = "erase-block-size"
	propWriteBlockSize = "write-block-size"
	// propControllerBase overrides the FTFC register block address.
	propControllerBase = "nxp,ftfc-base"

	chosenFlashController = "zephyr,flash-controller"
	chosenSRAM            = "zephyr,sram"
)

// ReadDTB reads a flattened devicetree blob from path.
func ReadDTB(p string) (Description, error) {
	f, err := os.Open(p)
	if err != nil {
		return Description{}, err
	}
	defer f.Close()
	fdt, err := dt.ReadFDT(f)
	if err != nil {
		return Description{}, fmt.Errorf("failed to parse devicetree %q: %w", p, err)
	}
	return FromDeviceTree(fdt.RootNode)
}

// FromDeviceTree builds a description from a devicetree. Every node with a
// compatible or reg property becomes a Node named by its full path.
// Chosen entries may be paths or aliases.
func FromDeviceTree(root *dt.Node) (Description, error) {
	if root == nil {
		return Description{}, fmt.Errorf("%w: empty devicetree", ErrInvalidBoard)
	}
	var d Description
	if err := walk(root, "/", cells{address: 2, size: 1}, nil, &d); err != nil {
		return Description{}, err
	}

	for _, c := range root.Children {
		if c.Name != "chosen" {
			continue
		}
		var err error
		if d.Chosen.FlashController, err = chosenPath(root, c, chosenFlashController); err != nil {
			return Description{}, err
		}
		if d.Chosen.SRAM, err = chosenPath(root, c, chosenSRAM); err != nil {
			return Description{}, err
		}
	}
	return d, nil
}

type cells struct {
	address, size int
}

// walk converts n and its children. c holds the cell sizes n's reg is encoded
// with, set by n's parent. parent is the closest converted ancestor.
func walk(n *dt.Node, p string, c cells, parent *Node, d *Description) error {
	self := parent
	if hasProperty(n, propCompatible) || hasProperty(n, propReg) {
		node, err := convert(n, p, c, parent)
		if err != nil {
			return err
		}
		d.Nodes = append(d.Nodes, node)
		self = &node
	}

	// Cell sizes for n's children.
	cc := cells{address: 2, size: 1}
	if v, ok, err := u32Property(n, propAddressCells); err != nil {
		return fmt.Errorf("%s: %v", p, err)
	} else if ok {
		cc.address = int(v)
	}
	if v, ok, err := u32Property(n, propSizeCells); err != nil {
		return fmt.Errorf("%s: %v", p, err)
	} else if ok {
		cc.size = int(v)
	}
	for _, child := range n.Children {
		if err := walk(child, path.Join(p, child.Name), cc, self, d); err != nil {
			return err
		}
	}
	return nil
}

func convert(n *dt.Node, p string, c cells, parent *Node) (Node, error) {
	node := Node{Name: p}
	if v, ok := n.LookProperty(propCompatible); ok {
		node.Compatible = stringList(v.Value)
	}
	if v, ok := n.LookProperty(propStatus); ok {
		node.Status = strings.TrimRight(string(v.Value), "\x00")
	}
	if v, ok := n.LookProperty(propReg); ok {
		reg, err := decodeReg(v.Value, c)
		if err != nil {
			return Node{}, fmt.Errorf("%s: %v", p, err)
		}
		node.Reg = reg
	}
	for _, f := range []struct {
		name string
		dst  *uint64
	}{
		{propEraseBlockSize, &node.EraseBlockSize},
		{propWriteBlockSize, &node.WriteBlockSize},
		{propControllerBase, &node.ControllerBase},
	} {
		v, ok, err := u32Property(n, f.name)
		if err != nil {
			return Node{}, fmt.Errorf("%s: %v", p, err)
		}
		if ok {
			*f.dst = uint64(v)
		}
	}
	if node.ControllerBase == 0 && parent != nil && parent.IsCompatible(ControllerCompatible) && len(parent.Reg) > 0 {
		node.ControllerBase = parent.Reg[0]
	}
	return node, nil
}

func hasProperty(n *dt.Node, name string) bool {
	_, ok := n.LookProperty(name)
	return ok
}

func u32Property(n *dt.Node, name string) (uint32, bool, error) {
	p, ok := n.LookProperty(name)
	if !ok {
		return 0, false, nil
	}
	v, err := p.AsU32()
	if err != nil {
		return 0, false, fmt.Errorf("property %q: %v", name, err)
	}
	return v, true, nil
}

func stringList(b []byte) []string {
	var r []string
	for _, s := range bytes.Split(bytes.TrimRight(b, "\x00"), []byte{0}) {
		r = append(r, string(s))
	}
	return r
}

// decodeReg returns the first (address, size) pair of a reg property.
func decodeReg(b []byte, c cells) ([]uint64, error) {
	if c.address < 1 || c.address > 2 || c.size < 0 || c.size > 2 {
		return nil, fmt.Errorf("unsupported cell sizes %d/%d", c.address, c.size)
	}
	want := 4 * (c.address + c.size)
	if len(b) < want {
		return nil, fmt.Errorf("reg is %d bytes, want at least %d", len(b), want)
	}
	addr := readCells(b[:4*c.address])
	size := readCells(b[4*c.address : want])
	return []uint64{addr, size}, nil
}

func readCells(b []byte) uint64 {
	var v uint64
	for ; len(b) >= 4; b = b[4:] {
		v = v<<32 | uint64(binary.BigEndian.Uint32(b))
	}
	return v
}

// chosenPath resolves a /chosen entry to a node path.
func chosenPath(root, chosen *dt.Node, name string) (string, error) {
	v, ok := chosen.LookProperty(name)
	if !ok {
		return "", nil
	}
	s := strings.TrimRight(string(v.Value), "\x00")
	if strings.HasPrefix(s, "/") {
		return s, nil
	}
	for _, c := range root.Children {
		if c.Name != "aliases" {
			continue
		}
		if a, ok := c.LookProperty(s); ok {
			return strings.TrimRight(string(a.Value), "\x00"), nil
		}
	}
	return "", fmt.Errorf("%w: /chosen %s refers to unknown alias %q", ErrInvalidBoard, name, s)
}
