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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses a YAML board file.
func ParseYAML(b []byte) (Description, error) {
	var d Description
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	for i, n := range d.Nodes {
		if n.Name == "" {
			return Description{}, fmt.Errorf("%w: node %d: missing field: Name", ErrInvalidBoard, i)
		}
	}
	return d, nil
}

// Load reads a board description, choosing the format from the file
// extension: .dtb for a flattened devicetree, .yaml or .yml for a board file.
func Load(p string) (Description, error) {
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".dtb":
		return ReadDTB(p)
	case ".yaml", ".yml":
		b, err := os.ReadFile(p)
		if err != nil {
			return Description{}, err
		}
		return ParseYAML(b)
	default:
		return Description{}, fmt.Errorf("unknown board description format %q", ext)
	}
}
