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

// Package devices contains the operation table flash_tool drives devices
// through.
package devices

import (
	"context"

	"github.com/google/s32k-flash/flash"
)

// Device is the interface to a flash device, local or remote.
type Device interface {
	// Read copies len(buf) bytes starting at offset into buf.
	Read(offset int64, buf []byte) error
	// Write programs data at offset.
	Write(ctx context.Context, offset int64, data []byte) error
	// Erase erases size bytes starting at offset.
	Erase(ctx context.Context, offset, size int64) error
	// Parameters returns the programming parameters of the device.
	Parameters() flash.Parameters
	// Size returns the size of the device in bytes.
	Size() int64
	// PageLayout returns the page layout of the device.
	PageLayout() []flash.PageLayout
}
