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

package mmio

import (
	"io"
	"runtime"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/google/s32k-flash/devices/ftfc"
)

func TestRegisters(t *testing.T) {
	mem := make([]byte, ftfc.WindowSize)
	w := Over(mem)

	w.Write8(ftfc.FCCOB0, ftfc.CmdEraseSector)
	w.Write8(ftfc.FCCOB1, 0x12)
	if got, want := mem[0x07], byte(0x09); got != want {
		t.Errorf("FCCOB0 = 0x%02x, want 0x%02x", got, want)
	}
	if got, want := mem[0x06], byte(0x12); got != want {
		t.Errorf("FCCOB1 = 0x%02x, want 0x%02x", got, want)
	}
	mem[ftfc.FSTAT] = 0x80
	if got := ftfc.Status(w.Read8(ftfc.FSTAT)); !got.Complete() {
		t.Errorf("FSTAT = %v, want CCIF", got)
	}
}

func TestAt(t *testing.T) {
	mem := make([]byte, ftfc.WindowSize)
	w := At(uintptr(unsafe.Pointer(&mem[0])), uintptr(len(mem)))
	if got, want := w.Size(), uintptr(ftfc.WindowSize); got != want {
		t.Errorf("Size = %d, want %d", got, want)
	}

	w.Write8(ftfc.FSTAT, 0x30)
	if got, want := mem[ftfc.FSTAT], byte(0x30); got != want {
		t.Errorf("FSTAT = 0x%02x, want 0x%02x", got, want)
	}
	// Each poll must observe the memory as it is now.
	for i, v := range []byte{0x00, 0x00, 0x80} {
		mem[ftfc.FSTAT] = v
		if got := w.Read8(ftfc.FSTAT); got != v {
			t.Errorf("poll %d: FSTAT = 0x%02x, want 0x%02x", i, got, v)
		}
	}
	runtime.KeepAlive(mem)
}

func TestOutOfWindowPanics(t *testing.T) {
	w := Over(make([]byte, 4))
	defer func() {
		if recover() == nil {
			t.Error("Read8 outside the window did not panic")
		}
	}()
	w.Read8(4)
}

func TestReadAt(t *testing.T) {
	mem := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	w := Over(mem)
	for _, test := range []struct {
		name    string
		off     int64
		n       int
		want    []byte
		wantErr error
	}{
		{name: "all", off: 0, n: 8, want: mem},
		{name: "middle", off: 2, n: 3, want: []byte{2, 3, 4}},
		{name: "short", off: 6, n: 4, want: []byte{6, 7}, wantErr: io.EOF},
		{name: "end", off: 8, n: 1, want: []byte{}, wantErr: io.EOF},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := make([]byte, test.n)
			n, err := w.ReadAt(p, test.off)
			if err != test.wantErr {
				t.Fatalf("ReadAt: %v, want %v", err, test.wantErr)
			}
			if diff := cmp.Diff(test.want, p[:n]); diff != "" {
				t.Errorf("ReadAt diff (-want +got):\n%s", diff)
			}
		})
	}
	if _, err := w.ReadAt(make([]byte, 1), -1); err == nil {
		t.Error("ReadAt(-1) succeeded")
	}
}

func TestEmpty(t *testing.T) {
	w := Over(nil)
	if w.Size() != 0 {
		t.Errorf("Size = %d, want 0", w.Size())
	}
	if _, err := w.ReadAt(make([]byte, 1), 0); err != io.EOF {
		t.Errorf("ReadAt = %v, want EOF", err)
	}
}
