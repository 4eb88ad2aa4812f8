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

// Package api contains the HTTP API of the flash emulator.
package api

import (
	"fmt"

	"github.com/sigurn/crc16"
)

const (
	// HTTPInfo is the path of the URL to get the geometry of the emulated device.
	HTTPInfo = "flash/v0/info"
	// HTTPRead is the path of the URL to read from the device.
	// It takes offset and length query parameters.
	HTTPRead = "flash/v0/read"
	// HTTPWrite is the path of the URL to program the device.
	HTTPWrite = "flash/v0/write"
	// HTTPErase is the path of the URL to erase sectors of the device.
	HTTPErase = "flash/v0/erase"
)

// MaxReadLength is the largest read the emulator serves in one request.
const MaxReadLength = 1 << 20

// PageLayout describes a run of equally sized pages.
type PageLayout struct {
	Count int64
	Size  int64
}

// Info describes the emulated device.
type Info struct {
	Size           int64
	WriteBlockSize int64
	EraseValue     byte
	PageLayout     []PageLayout
}

// String returns a compact printable representation of an Info.
func (i Info) String() string {
	return fmt.Sprintf("{size %d, write block %d, erase value 0x%02x, pages %v}", i.Size, i.WriteBlockSize, i.EraseValue, i.PageLayout)
}

// ReadResponse is returned for a read request.
type ReadResponse struct {
	Offset int64
	Data   []byte
	// Checksum is the CRC-16/CCITT-FALSE of Data.
	Checksum uint16
}

// WriteRequest asks for Data to be programmed at Offset.
type WriteRequest struct {
	Offset int64
	Data   []byte
}

// EraseRequest asks for Size bytes starting at Offset to be erased.
type EraseRequest struct {
	Offset int64
	Size   int64
}

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum returns the CRC-16/CCITT-FALSE of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
