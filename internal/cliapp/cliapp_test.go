// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cliapp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_VersionCommand(t *testing.T) {
	root := New()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), version)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestValidate_SucceedsOnWellFormedInputs(t *testing.T) {
	dir := t.TempDir()
	recipesDir := filepath.Join(dir, "recipes")
	require.NoError(t, os.Mkdir(recipesDir, 0o755))

	landscapePath := filepath.Join(dir, "landscape.xml")
	writeFile(t, landscapePath, `<landscape><it-resource id="edge-1"><capability>packet-filter</capability></it-resource></landscape>`)

	writeFile(t, filepath.Join(recipesDir, "drop-dos.xml"),
		`<recipe xmlns="http://security.polito.it/shield/recipe" name="drop-dos" action="drop" min-severity="1" max-severity="4" type="DoS"></recipe>`)

	cfgPath := filepath.Join(dir, "mitigated.hcl")
	writeFile(t, cfgPath, `
landscape_file    = "`+landscapePath+`"
recipes_directory = "`+recipesDir+`"
`)

	root := New()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"--config", cfgPath, "validate"})
	require.NoError(t, root.Execute())

	s := out.String()
	assert.Contains(t, s, "config: ok")
	assert.Contains(t, s, "landscape: ok (1 node(s))")
	assert.Contains(t, s, "recipes: ok (1 loaded)")
}

func TestValidate_FailsOnMissingConfig(t *testing.T) {
	root := New()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.hcl"), "validate"})
	root.SilenceUsage = true
	root.SilenceErrors = true
	assert.Error(t, root.Execute())
}

func TestValidate_FailsOnMissingLandscapeFile(t *testing.T) {
	dir := t.TempDir()
	recipesDir := filepath.Join(dir, "recipes")
	require.NoError(t, os.Mkdir(recipesDir, 0o755))

	cfgPath := filepath.Join(dir, "mitigated.hcl")
	writeFile(t, cfgPath, `
landscape_file    = "`+filepath.Join(dir, "no-such-landscape.xml")+`"
recipes_directory = "`+recipesDir+`"
`)

	root := New()
	root.SetArgs([]string{"--config", cfgPath, "validate"})
	root.SilenceUsage = true
	root.SilenceErrors = true
	assert.Error(t, root.Execute())
}
