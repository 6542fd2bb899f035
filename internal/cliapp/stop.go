// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cliapp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mitigated.example.com/engine/internal/config"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running serve process via its PID file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return stopDaemon(cfg.PIDFile)
		},
	}
}

// stopDaemon reads the PID file and delivers SIGTERM, mirroring the
// daemon-control contract of the original implementation this engine
// replaces (PID-file read, `os.kill(pid, SIGTERM)`, PID-file removal;
// grounded on `original_source/cybertop/cybertop.py`'s `stop()`). The
// running process removes its own PID file as part of clean shutdown
// (see writePIDFile/removePIDFile in serve.go), so stopDaemon only
// removes it here if the process had already died without doing so.
func stopDaemon(path string) error {
	if path == "" {
		return fmt.Errorf("stop: no pid_file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("stop: no daemon running (no pid file at %s)", path)
		}
		return fmt.Errorf("stop: reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("stop: pid file %s: %w", path, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("stop: pid %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if isProcessGone(err) {
			os.Remove(path)
			return fmt.Errorf("stop: process %d is not running; removed stale pid file", pid)
		}
		return fmt.Errorf("stop: signaling pid %d: %w", pid, err)
	}
	return nil
}

// isProcessGone reports whether err indicates the signaled process
// no longer exists (ESRCH), without pulling in golang.org/x/sys for one
// errno comparison.
func isProcessGone(err error) bool {
	return strings.Contains(err.Error(), "process already finished") ||
		strings.Contains(err.Error(), "no such process")
}
