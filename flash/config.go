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

package flash

import (
	"fmt"

	"github.com/google/s32k-flash/devices/ftfc"
)

// EraseValue is the value flash reads back as after an erase.
const EraseValue = 0xFF

// Config describes the geometry of one flash region.
// It is fixed when the device is created.
type Config struct {
	// FlashBase is the physical address at which the array is mapped.
	FlashBase uint32
	// FlashSize is the number of addressable bytes.
	FlashSize int64
	// EraseBlock is the size in bytes of one sector.
	EraseBlock int64
	// WriteBlock is the size in bytes of one phrase.
	WriteBlock int64
}

// Parameters is the read-only view of a device's programming parameters.
type Parameters struct {
	WriteBlockSize int64
	EraseValue     byte
}

// PageLayout describes a run of equally sized pages.
type PageLayout struct {
	Count int64
	Size  int64
}

// Validate checks that the geometry is self-consistent and addressable by
// the controller.
func (c Config) Validate() error {
	if c.FlashSize <= 0 || c.EraseBlock <= 0 || c.WriteBlock <= 0 {
		return fmt.Errorf("invalid geometry: size=%d erase_block=%d write_block=%d must all be positive", c.FlashSize, c.EraseBlock, c.WriteBlock)
	}
	if c.WriteBlock > ftfc.MaxPhraseSize {
		return fmt.Errorf("invalid geometry: write_block %d larger than a %d byte phrase", c.WriteBlock, ftfc.MaxPhraseSize)
	}
	if c.EraseBlock%c.WriteBlock != 0 {
		return fmt.Errorf("invalid geometry: erase_block %d is not a multiple of write_block %d", c.EraseBlock, c.WriteBlock)
	}
	if c.FlashSize%c.EraseBlock != 0 {
		return fmt.Errorf("invalid geometry: size %d is not a multiple of erase_block %d", c.FlashSize, c.EraseBlock)
	}
	if end := int64(c.FlashBase) + c.FlashSize; end > ftfc.MaxAddress {
		return fmt.Errorf("invalid geometry: region [0x%x, 0x%x) is beyond the 24-bit command address space", c.FlashBase, end)
	}
	return nil
}

// Parameters returns the device parameters derived from the geometry.
func (c Config) Parameters() Parameters {
	return Parameters{
		WriteBlockSize: c.WriteBlock,
		EraseValue:     EraseValue,
	}
}

// PageLayout returns the layout of the region: uniform pages of one sector.
func (c Config) PageLayout() []PageLayout {
	return []PageLayout{{Count: c.FlashSize / c.EraseBlock, Size: c.EraseBlock}}
}
