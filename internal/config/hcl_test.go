// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalHCL = `
landscape_file    = "landscape.xml"
recipes_directory = "recipes/"
`

func TestParse_AppliesDefaultsOnTopOfDecoded(t *testing.T) {
	cfg, err := Parse("mitigated.hcl", []byte(minimalHCL))
	require.NoError(t, err)

	assert.Equal(t, "landscape.xml", cfg.LandscapeFile)
	assert.Equal(t, "recipes/", cfg.RecipesDirectory)
	assert.Equal(t, "file", cfg.InputMethod, "unset optional field keeps its Default() value")
	assert.Equal(t, 3, cfg.DashboardAttempts)
}

func TestParse_OverridesDefaults(t *testing.T) {
	hcl := minimalHCL + `
input_method       = "both"
server_address     = "localhost:6379"
dashboard_attempts = 7
`
	cfg, err := Parse("mitigated.hcl", []byte(hcl))
	require.NoError(t, err)
	assert.Equal(t, "both", cfg.InputMethod)
	assert.Equal(t, "localhost:6379", cfg.ServerAddress)
	assert.Equal(t, 7, cfg.DashboardAttempts)
}

func TestParse_InvalidHCLSyntax(t *testing.T) {
	_, err := Parse("mitigated.hcl", []byte("landscape_file = "))
	assert.Error(t, err)
}

func TestParse_FailsValidationWhenRequiredFieldMissing(t *testing.T) {
	_, err := Parse("mitigated.hcl", []byte(`recipes_directory = "recipes/"`))
	assert.Error(t, err)
}

func TestLoad_ReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mitigated.hcl")
	require.NoError(t, os.WriteFile(path, []byte(minimalHCL), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "landscape.xml", cfg.LandscapeFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.hcl"))
	assert.Error(t, err)
}
