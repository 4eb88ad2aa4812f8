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

// This package is the entrypoint for the flash emulator server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/cmd/emulator/impl"
)

var (
	listenAddr = flag.String("listen", ":8030", "address:port to listen for requests on")
	boardFile  = flag.String("board", "", "Board description (.dtb, .yaml) to take the flash geometry from; defaults to an S32K148")
	node       = flag.String("node", "", "Flash node in the board description; defaults to the designated flash controller")
	imageFile  = flag.String("image", "", "File to persist the flash contents in, e.g. /tmp/flash.img")
	latency    = flag.Int("latency", 0, "Number of status polls each flash command takes")
	maxPolls   = flag.Uint64("max_polls", 0, "Bound on status polls per command; 0 uses the driver default")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := impl.Main(ctx, impl.EmulatorOpts{
		ListenAddr: *listenAddr,
		BoardFile:  *boardFile,
		Node:       *node,
		ImageFile:  *imageFile,
		Latency:    *latency,
		MaxPolls:   *maxPolls,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
