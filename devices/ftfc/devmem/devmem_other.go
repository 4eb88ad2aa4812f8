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

//go:build !linux

package devmem

import (
	"errors"

	"github.com/google/s32k-flash/devices/ftfc/mmio"
)

// DefaultPath is the device file exposing physical memory.
const DefaultPath = "/dev/mem"

// Mapping is a mapped physical range.
type Mapping struct{}

// Map is only supported on Linux.
func Map(path string, phys int64, size int) (*Mapping, error) {
	return nil, errors.New("devmem: not supported on this platform")
}

// OpenImage is only supported on Linux.
func OpenImage(path string, size int, fill byte) (*Mapping, error) {
	return Map(path, 0, size)
}

func (m *Mapping) Bytes() []byte        { return nil }
func (m *Mapping) Window() *mmio.Window { return mmio.Over(nil) }
func (m *Mapping) Sync() error          { return nil }
func (m *Mapping) Close() error         { return nil }
