// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the optional pytc.yaml placed next to a compile
// target, the same json-tagged-struct-over-sigs.k8s.io/yaml shape db/def.go
// uses for its own definition files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// FileName is the config file pytc looks for next to its input.
const FileName = "pytc.yaml"

// Config is the optional per-build configuration. Every field has a sane
// default, and a wholly absent pytc.yaml is not an error.
type Config struct {
	// TargetTriple is passed to llc as -mtriple, if set.
	TargetTriple string `json:"target_triple,omitempty"`
	// OptLevel is passed to cc as -O<n>. Defaults to 0.
	OptLevel int `json:"opt_level,omitempty"`
}

// Load reads pytc.yaml from dir, returning a zero-value Config (not an
// error) if the file does not exist.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
