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

package impl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/s32k-flash/flash"
)

const testBoard = `
Nodes:
  - Name: flash0
    Compatible: ["nxp,s32k1xx-flash"]
    Reg: [0x0, 0x4000]
    EraseBlockSize: 0x1000
    WriteBlockSize: 8
    ControllerBase: 0x4000
Chosen:
  FlashController: flash0
`

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestCheck(t *testing.T) {
	for _, test := range []struct {
		desc    string
		board   string
		want    string
		wantErr bool
	}{
		{
			desc:  "ok",
			board: testBoard,
			want:  "flash0 (designated): flash 0x000000+0x4000, 4096 byte sectors, 8 byte phrases, FTFC @ 0x00004000\n",
		}, {
			desc:    "nothing designated",
			board:   strings.Replace(testBoard, "FlashController: flash0", "FlashController: \"\"", 1),
			wantErr: true,
		}, {
			desc:    "execution region missing",
			board:   testBoard + "  SRAM: sram0\n",
			wantErr: true,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), FlashOpts{Op: "check", BoardFile: writeFile(t, "board.yaml", []byte(test.board))}, &out)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("check: %v, wantErr %t", err, test.wantErr)
			}
			if diff := cmp.Diff(test.want, out.String()); diff != "" {
				t.Errorf("output diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	board := strings.Replace(testBoard, "Reg: [0x0, 0x4000]", "Reg: [0x10000, 0x4000]", 1)
	for _, test := range []struct {
		desc string
		opts FlashOpts
		want string
	}{
		{
			desc: "default",
			opts: FlashOpts{Op: "info", Backend: "sim"},
			want: "base: 0x000000\nsize: 1572864\nwrite block: 8\nerase value: 0xff\npages: 384 x 4096\n",
		}, {
			desc: "board",
			opts: FlashOpts{Op: "info", Backend: "sim", BoardFile: writeFile(t, "board.yaml", []byte(board))},
			want: "base: 0x010000\nsize: 16384\nwrite block: 8\nerase value: 0xff\npages: 4 x 4096\n",
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), test.opts, &out); err != nil {
				t.Fatalf("info: %v", err)
			}
			if diff := cmp.Diff(test.want, out.String()); diff != "" {
				t.Errorf("output diff (-want +got):\n%s", diff)
			}
		})
	}
}

// failWriter rejects any write containing fail.
type failWriter struct {
	fail byte
}

func (f failWriter) Write(p []byte) (int, error) {
	if bytes.IndexByte(p, f.fail) >= 0 {
		return 0, errors.New("disk full")
	}
	return len(p), nil
}

func TestReadDumpFlushError(t *testing.T) {
	// A partial line's character column is only written when the dump is
	// closed.
	opts := FlashOpts{Op: "read", Backend: "sim", Length: 5}
	if err := run(context.Background(), opts, failWriter{fail: '|'}); err == nil {
		t.Error("read succeeded despite the last dump line failing to write")
	}
}

func TestProgramReadErase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := FlashOpts{
		Backend:   "sim",
		BoardFile: writeFile(t, "board.yaml", []byte(testBoard)),
		Image:     filepath.Join(dir, "flash.img"),
	}
	img := make([]byte, 5000)
	for i := range img {
		img[i] = byte(i * 3)
	}

	opts := base
	opts.Op, opts.Offset, opts.In = "program", 0x1000, writeFile(t, "fw.bin", img)
	if err := run(ctx, opts, os.Stdout); err != nil {
		t.Fatalf("program: %v", err)
	}

	opts = base
	opts.Op, opts.Offset, opts.Length, opts.Out = "read", 0x1000, int64(len(img)), filepath.Join(dir, "out.bin")
	if err := run(ctx, opts, os.Stdout); err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := os.ReadFile(opts.Out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Error("read back different data")
	}

	opts = base
	opts.Op, opts.Offset, opts.Length = "erase", 0x1000, 0x1000
	if err := run(ctx, opts, os.Stdout); err != nil {
		t.Fatalf("erase: %v", err)
	}
	var out bytes.Buffer
	opts = base
	opts.Op, opts.Offset, opts.Length = "read", 0x1000, 16
	if err := run(ctx, opts, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "00000000  ff ff ff ff ff ff ff ff  ff ff ff ff ff ff ff ff  |................|\n"; out.String() != want {
		t.Errorf("hex dump = %q, want %q", out.String(), want)
	}
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	for _, test := range []struct {
		desc    string
		offset  int64
		data    []byte
		wantErr error
	}{
		{desc: "ok", offset: 0x10, data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{desc: "misaligned", offset: 4, data: []byte{1, 2, 3, 4, 5, 6, 7, 8}, wantErr: flash.ErrInvalidArgument},
		{desc: "past end", offset: 1536*1024 - 8, data: make([]byte, 16), wantErr: flash.ErrInvalidArgument},
	} {
		t.Run(test.desc, func(t *testing.T) {
			opts := FlashOpts{Backend: "sim", Op: "write", Offset: test.offset, In: writeFile(t, "in.bin", test.data)}
			if err := run(ctx, opts, os.Stdout); !errors.Is(err, test.wantErr) {
				t.Errorf("write: %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestDevMem(t *testing.T) {
	mem := make([]byte, 0x5000)
	for i := range 0x4000 {
		mem[i] = byte(i)
	}
	mem[0x4000] = 0x80 // CCIF
	opts := FlashOpts{
		Backend:   "devmem",
		DevMem:    writeFile(t, "mem", mem),
		BoardFile: writeFile(t, "board.yaml", []byte(testBoard)),
		Op:        "read",
		Offset:    0x100,
		Length:    8,
		Out:       filepath.Join(t.TempDir(), "out.bin"),
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := os.ReadFile(opts.Out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(mem[0x100:0x108], got); diff != "" {
		t.Errorf("read diff (-want +got):\n%s", diff)
	}
}

func TestBadOptions(t *testing.T) {
	fw := writeFile(t, "fw.bin", []byte{1, 2, 3})
	for _, test := range []struct {
		desc string
		opts FlashOpts
	}{
		{desc: "unknown op", opts: FlashOpts{Backend: "sim", Op: "flash"}},
		{desc: "unknown backend", opts: FlashOpts{Backend: "jtag", Op: "info"}},
		{desc: "check without board", opts: FlashOpts{Op: "check"}},
		{desc: "devmem without board", opts: FlashOpts{Backend: "devmem", Op: "info"}},
		{desc: "write without input", opts: FlashOpts{Backend: "sim", Op: "write"}},
		{desc: "program misaligned", opts: FlashOpts{Backend: "sim", Op: "program", Offset: 8, In: fw}},
		{desc: "remote unreachable", opts: FlashOpts{Backend: "remote", Op: "info", EmulatorURL: "http://127.0.0.1:1"}},
	} {
		t.Run(test.desc, func(t *testing.T) {
			if err := run(context.Background(), test.opts, os.Stdout); err == nil {
				t.Error("run succeeded")
			}
		})
	}
}
