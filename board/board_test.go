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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/google/s32k-flash/flash"
)

func flashNode(name string) Node {
	return Node{
		Name:           name,
		Compatible:     []string{Compatible},
		Reg:            []uint64{0, 0x180000},
		EraseBlockSize: 0x1000,
		WriteBlockSize: 8,
	}
}

var sram = Node{Name: "sram0", Compatible: []string{"mmio-sram"}, Reg: []uint64{0x1ffe0000, 0x3f000}}

func TestBind(t *testing.T) {
	s32k148 := flash.Config{FlashBase: 0, FlashSize: 0x180000, EraseBlock: 0x1000, WriteBlock: 8}

	second := flashNode("flash1")
	second.Reg = []uint64{0x400000, 0x10000}
	second.ControllerBase = 0x40021000

	disabled := flashNode("flash1")
	disabled.Status = "disabled"

	other := Node{Name: "qspi", Compatible: []string{"nxp,imx-flexspi"}, Reg: []uint64{0x68000000, 0x1000}}

	badGeometry := flashNode("flash0")
	badGeometry.WriteBlockSize = 3

	noReg := flashNode("flash0")
	noReg.Reg = nil

	inFlash := Node{Name: "sram0", Reg: []uint64{0x100000, 0x1000}}

	for _, test := range []struct {
		name    string
		desc    Description
		want    []Binding
		wantErr bool
	}{
		{
			name: "s32k148",
			desc: Description{Nodes: []Node{flashNode("flash0"), sram}, Chosen: Chosen{FlashController: "flash0", SRAM: "sram0"}},
			want: []Binding{{Name: "flash0", Config: s32k148, ControllerBase: ftfc.DefaultBase, Designated: true}},
		}, {
			name: "no execution region",
			desc: Description{Nodes: []Node{flashNode("flash0")}, Chosen: Chosen{FlashController: "flash0"}},
			want: []Binding{{Name: "flash0", Config: s32k148, ControllerBase: ftfc.DefaultBase, Designated: true}},
		}, {
			name: "two devices",
			desc: Description{Nodes: []Node{flashNode("flash0"), second, other}, Chosen: Chosen{FlashController: "flash1"}},
			want: []Binding{
				{Name: "flash0", Config: s32k148, ControllerBase: ftfc.DefaultBase},
				{Name: "flash1", Config: flash.Config{FlashBase: 0x400000, FlashSize: 0x10000, EraseBlock: 0x1000, WriteBlock: 8}, ControllerBase: 0x40021000, Designated: true},
			},
		}, {
			name: "disabled nodes are skipped",
			desc: Description{Nodes: []Node{flashNode("flash0"), disabled}, Chosen: Chosen{FlashController: "flash0"}},
			want: []Binding{{Name: "flash0", Config: s32k148, ControllerBase: ftfc.DefaultBase, Designated: true}},
		}, {
			name:    "no flash nodes",
			desc:    Description{Nodes: []Node{other, sram}, Chosen: Chosen{FlashController: "qspi"}},
			wantErr: true,
		}, {
			name:    "only disabled flash nodes",
			desc:    Description{Nodes: []Node{disabled}, Chosen: Chosen{FlashController: "flash1"}},
			wantErr: true,
		}, {
			name:    "nothing designated",
			desc:    Description{Nodes: []Node{flashNode("flash0")}},
			wantErr: true,
		}, {
			name:    "designated node missing",
			desc:    Description{Nodes: []Node{flashNode("flash0")}, Chosen: Chosen{FlashController: "flash9"}},
			wantErr: true,
		}, {
			name:    "designated node incompatible",
			desc:    Description{Nodes: []Node{flashNode("flash0"), other}, Chosen: Chosen{FlashController: "qspi"}},
			wantErr: true,
		}, {
			name:    "designated node disabled",
			desc:    Description{Nodes: []Node{flashNode("flash0"), disabled}, Chosen: Chosen{FlashController: "flash1"}},
			wantErr: true,
		}, {
			name:    "invalid geometry",
			desc:    Description{Nodes: []Node{badGeometry}, Chosen: Chosen{FlashController: "flash0"}},
			wantErr: true,
		}, {
			name:    "missing reg",
			desc:    Description{Nodes: []Node{noReg}, Chosen: Chosen{FlashController: "flash0"}},
			wantErr: true,
		}, {
			name:    "executing from flash",
			desc:    Description{Nodes: []Node{flashNode("flash0"), inFlash}, Chosen: Chosen{FlashController: "flash0", SRAM: "sram0"}},
			wantErr: true,
		}, {
			name:    "execution region missing",
			desc:    Description{Nodes: []Node{flashNode("flash0")}, Chosen: Chosen{FlashController: "flash0", SRAM: "sram0"}},
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Bind(test.desc)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Bind: %v, wantErr %t", err, test.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidBoard) {
					t.Errorf("Bind: %v, want ErrInvalidBoard", err)
				}
				return
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Bind diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFind(t *testing.T) {
	bs := []Binding{{Name: "flash0"}, {Name: "flash1", Designated: true}}
	for _, test := range []struct {
		name     string
		lookup   string
		wantName string
		wantErr  bool
	}{
		{name: "designated", lookup: "", wantName: "flash1"},
		{name: "by name", lookup: "flash0", wantName: "flash0"},
		{name: "unknown", lookup: "flash2", wantErr: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			b, err := Find(bs, test.lookup)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Find: %v, wantErr %t", err, test.wantErr)
			}
			if b.Name != test.wantName {
				t.Errorf("Find = %q, want %q", b.Name, test.wantName)
			}
		})
	}
	if _, err := Find(bs[:1], ""); err == nil {
		t.Error("Find without a designated device succeeded")
	}
}

func TestParseYAML(t *testing.T) {
	for _, test := range []struct {
		name    string
		yaml    string
		want    Description
		wantErr bool
	}{
		{
			name: "ok",
			yaml: `
Nodes:
  - Name: flash0
    Compatible: ["nxp,s32k1xx-flash"]
    Status: okay
    Reg: [0x1000, 0x2000]
    EraseBlockSize: 0x800
    WriteBlockSize: 8
    ControllerBase: 0x40020000
Chosen:
  FlashController: flash0
`,
			want: Description{
				Nodes: []Node{{
					Name:           "flash0",
					Compatible:     []string{Compatible},
					Status:         "okay",
					Reg:            []uint64{0x1000, 0x2000},
					EraseBlockSize: 0x800,
					WriteBlockSize: 8,
					ControllerBase: 0x40020000,
				}},
				Chosen: Chosen{FlashController: "flash0"},
			},
		}, {
			name:    "unknown field",
			yaml:    "Nodes:\n  - Name: flash0\n    Size: 12\n",
			wantErr: true,
		}, {
			name:    "missing name",
			yaml:    "Nodes:\n  - Compatible: [\"nxp,s32k1xx-flash\"]\n",
			wantErr: true,
		}, {
			name:    "garbage",
			yaml:    "Nodes: 3",
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseYAML([]byte(test.yaml))
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("ParseYAML: %v, wantErr %t", err, test.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("ParseYAML diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	d, err := Load("testdata/s32k148.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bs, err := Bind(d)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	b, ok := Designated(bs)
	if !ok {
		t.Fatal("no designated binding")
	}
	if diff := cmp.Diff([]flash.PageLayout{{Count: 384, Size: 4096}}, b.Config.PageLayout()); diff != "" {
		t.Errorf("PageLayout diff (-want +got):\n%s", diff)
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "board.json")
	if err := os.WriteFile(p, []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Error("Load succeeded on an unknown format")
	}
}
