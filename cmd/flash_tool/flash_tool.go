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

// flash_tool is a util to inspect, erase and program S32K1xx flash devices.
//
// The device can be a simulated one, the real one reached through /dev/mem,
// or one served by the emulator.
//
// Usage:
//
//	go run ./cmd/flash_tool/ --logtostderr --board=board.yaml --op=check
//	go run ./cmd/flash_tool/ --logtostderr --backend=remote --emulator_url=http://localhost:8030 --op=program --in=firmware.bin
//	go run ./cmd/flash_tool/ --logtostderr --backend=devmem --board=board.dtb --op=read --offset=0 --length=4096 --out=sector0.bin
package main

import (
	"context"
	"flag"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/cmd/flash_tool/impl"
	"github.com/google/s32k-flash/devices/ftfc/devmem"
)

var (
	boardFile   = flag.String("board", "", "Board description (.dtb, .yaml); required for check and the devmem backend")
	node        = flag.String("node", "", "Flash node in the board description; defaults to the designated flash controller")
	backend     = flag.String("backend", "sim", "One of [sim, devmem, remote]")
	image       = flag.String("image", "", "Image file backing the sim backend")
	devMem      = flag.String("devmem", devmem.DefaultPath, "Physical memory device used by the devmem backend")
	emulatorURL = flag.String("emulator_url", "http://localhost:8030", "Base URL of the emulator, for the remote backend")
	op          = flag.String("op", "info", "One of [check, info, read, write, erase, program]")
	offset      = flag.Int64("offset", 0, "Offset into the device")
	length      = flag.Int64("length", 0, "Number of bytes to read or erase; 0 means to the end of the device")
	in          = flag.String("in", "", "File to write or program")
	out         = flag.String("out", "", "File to save read data to; a hex dump is printed if unset")
	timeout     = flag.Duration("timeout", 0, "Overall timeout; 0 means none")
)

func main() {
	flag.Parse()

	if err := impl.Main(context.Background(), impl.FlashOpts{
		BoardFile:   *boardFile,
		Node:        *node,
		Backend:     *backend,
		Image:       *image,
		DevMem:      *devMem,
		EmulatorURL: *emulatorURL,
		Op:          *op,
		Offset:      *offset,
		Length:      *length,
		In:          *in,
		Out:         *out,
		Timeout:     *timeout,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
