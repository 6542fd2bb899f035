// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging wires the optional remote syslog sink named in §6's
// syslog config block.
package logging

import (
	"fmt"
	"io"
	"log/syslog"
)

// SyslogConfig mirrors §6's syslog{enabled, host, port, protocol, tag,
// facility} block.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string
	Tag      string
	Facility int
}

// DefaultSyslogConfig returns the disabled-by-default configuration
// documented in §6.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "mitigated",
		Facility: 1,
	}
}

// NewSyslogWriter dials the configured remote syslog daemon, defaulting
// Port/Protocol/Tag the same way DefaultSyslogConfig does when left zero.
func NewSyslogWriter(cfg SyslogConfig) (io.Writer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog host must not be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "mitigated"
	}

	w, err := syslog.Dial(cfg.Protocol, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), syslog.Priority(cfg.Facility)<<3|syslog.LOG_INFO, cfg.Tag)
	if err != nil {
		return nil, fmt.Errorf("logging: dial syslog %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return w, nil
}
