// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads and validates the flat HCL configuration named in
// §6. Round-trip diff/migration machinery for a live API editing config
// back into source has no refinement-engine equivalent and is dropped;
// only load+validate survives (see DESIGN.md).
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"mitigated.example.com/engine/internal/errors"
)

// Load reads and decodes an HCL configuration file, applies defaults for
// unset optional fields, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "config: failed to read config file")
	}
	return Parse(path, data)
}

// Parse decodes HCL bytes into a Config, starting from Default() so
// unset optional fields keep their documented defaults (§6).
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "config: failed to decode HCL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
