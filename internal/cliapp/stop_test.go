// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cliapp

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopDaemon_NoConfiguredPIDFile(t *testing.T) {
	assert.Error(t, stopDaemon(""))
}

func TestStopDaemon_MissingPIDFile(t *testing.T) {
	assert.Error(t, stopDaemon(filepath.Join(t.TempDir(), "absent.pid")))
}

func TestStopDaemon_CorruptPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mitigated.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))
	assert.Error(t, stopDaemon(path))
}

func TestStopDaemon_SignalsRunningProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	path := filepath.Join(t.TempDir(), "mitigated.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	assert.NoError(t, stopDaemon(path))

	cmd.Wait()
}
