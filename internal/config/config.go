// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import "time"

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// Config is the top-level configuration named in §6: a flat global block
// plus plug-in-scoped sections for the Limit action plug-in and the
// optional VNSFO node-id resolver.
type Config struct {
	// Schema version for backward compatibility.
	// @default: "1.0"
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	// WatchedDirectory is the directory the file adapter watches for
	// newly-closed attack CSV files (§4.1, §6).
	WatchedDirectory string `hcl:"watched_directory,optional" json:"watched_directory,omitempty"`

	// LandscapeFile points at the enforcement-fabric inventory XML (§3).
	LandscapeFile string `hcl:"landscape_file" json:"landscape_file"`

	// RecipesDirectory holds the per-(attack-type,severity-range) recipe
	// XML templates consulted during selection (§4.2).
	RecipesDirectory string `hcl:"recipes_directory" json:"recipes_directory"`

	// InputMethod selects which ingestion adapter(s) run: "file",
	// "message", or "both" (§4.1).
	InputMethod string `hcl:"input_method,optional" json:"input_method,omitempty"`

	// Server* configure the message adapter's broker connection.
	ServerAddress     string        `hcl:"server_address,optional" json:"server_address,omitempty"`
	ServerPort        int           `hcl:"server_port,optional" json:"server_port,omitempty"`
	ServerPassword    SecureString  `hcl:"server_password,optional" json:"server_password,omitempty"`
	ServerDB          int           `hcl:"server_db,optional" json:"server_db,omitempty"`
	ServerTopic       string        `hcl:"server_topic,optional" json:"server_topic,omitempty"`
	ServerRetryDelay  time.Duration `hcl:"server_retry_delay,optional" json:"server_retry_delay,omitempty"`
	ServerMaxAttempts int           `hcl:"server_max_attempts,optional" json:"server_max_attempts,omitempty"`

	// Dashboard* configure the best-effort broker egress sink (§4.5, §6).
	DashboardHost       string        `hcl:"dashboard_host,optional" json:"dashboard_host,omitempty"`
	DashboardPort       int           `hcl:"dashboard_port,optional" json:"dashboard_port,omitempty"`
	DashboardPassword   SecureString  `hcl:"dashboard_password,optional" json:"dashboard_password,omitempty"`
	DashboardDB         int           `hcl:"dashboard_db,optional" json:"dashboard_db,omitempty"`
	DashboardTopic      string        `hcl:"dashboard_topic,optional" json:"dashboard_topic,omitempty"`
	DashboardContent    string        `hcl:"dashboard_content,optional" json:"dashboard_content,omitempty"` // "hspl", "mspl", or "both"
	DashboardAttempts   int           `hcl:"dashboard_attempts,optional" json:"dashboard_attempts,omitempty"`
	DashboardRetryDelay time.Duration `hcl:"dashboard_retry_delay,optional" json:"dashboard_retry_delay,omitempty"`
	DashboardTimeout    time.Duration `hcl:"dashboard_timeout,optional" json:"dashboard_timeout,omitempty"`

	// Sidecar dump files, written alongside dashboard egress (§6).
	HSPLsFile     string `hcl:"hspls_file,optional" json:"hspls_file,omitempty"`
	MSPLsFile     string `hcl:"mspls_file,optional" json:"mspls_file,omitempty"`
	DashboardFile string `hcl:"dashboard_file,optional" json:"dashboard_file,omitempty"`

	// HSPL optimizer knobs (§4.3).
	HSPLMergeInclusions   bool `hcl:"hspl_merge_inclusions,optional" json:"hspl_merge_inclusions,omitempty"`
	HSPLMergeWithAnyPorts bool `hcl:"hspl_merge_with_any_ports,optional" json:"hspl_merge_with_any_ports,omitempty"`
	HSPLMergeWithSubnets  bool `hcl:"hspl_merge_with_subnets,optional" json:"hspl_merge_with_subnets,omitempty"`
	HSPLMergingThreshold  int  `hcl:"hspl_merging_threshold,optional" json:"hspl_merging_threshold,omitempty"`
	HSPLMergingMinBits    int  `hcl:"hspl_merging_min_bits,optional" json:"hspl_merging_min_bits,omitempty"`
	HSPLMergingMaxBits    int  `hcl:"hspl_merging_max_bits,optional" json:"hspl_merging_max_bits,omitempty"`

	// Limit is the plug-in-scoped block for the rate-limit action (§4.4).
	Limit *LimitConfig `hcl:"limit,block" json:"limit,omitempty"`

	// VNSFO configures the optional node-id resolver hook (§4.4 step 2,
	// §9 Design Note). When disabled, the chosen landscape node id is
	// used directly as the MSPL it-resource id.
	VNSFO *VNSFOConfig `hcl:"vnsfo,block" json:"vnsfo,omitempty"`

	// Metrics exposes the Prometheus scrape endpoint.
	Metrics *MetricsConfig `hcl:"metrics,block" json:"metrics,omitempty"`

	// Syslog configures remote structured logging.
	Syslog *SyslogConfig `hcl:"syslog,block" json:"syslog,omitempty"`

	// StateDir overrides the default state directory.
	StateDir string `hcl:"state_dir,optional" json:"state_dir,omitempty"`

	// LogDir overrides the default log directory.
	LogDir string `hcl:"log_dir,optional" json:"log_dir,omitempty"`

	// PIDFile is where `serve` records its process id on start and where
	// `stop` looks it up to deliver SIGTERM, mirroring the PID-file
	// start/stop contract the daemon this engine replaces used.
	PIDFile string `hcl:"pid_file,optional" json:"pid_file,omitempty"`
}

// LimitConfig carries the Limit action plug-in's fallback parameters
// (§4.4: "falls back to a configured default when a recipe leaves
// max-connections/rate-limit unset").
type LimitConfig struct {
	MaxConnections int    `hcl:"max_connections,optional" json:"max_connections,omitempty"`
	RateLimit      string `hcl:"rate_limit,optional" json:"rate_limit,omitempty"`
}

// VNSFOConfig configures the optional resolver call to an external
// orchestrator (§9 Design Note "any external orchestrator lookup is
// specified only as an optional resolver hook").
type VNSFOConfig struct {
	Enabled bool          `hcl:"enable_vnsfo_api_call,optional" json:"enable_vnsfo_api_call,omitempty"`
	BaseURL string        `hcl:"vnsfo_base_url,optional" json:"vnsfo_base_url,omitempty"`
	Timeout time.Duration `hcl:"vnsfo_timeout,optional" json:"vnsfo_timeout,omitempty"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `hcl:"enabled,optional" json:"enabled,omitempty"`
	Addr    string `hcl:"addr,optional" json:"addr,omitempty"`
}

// SyslogConfig configures remote structured logging.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional" json:"enabled,omitempty"`
	Host     string `hcl:"host,optional" json:"host,omitempty"`
	Port     int    `hcl:"port,optional" json:"port,omitempty"`
	Protocol string `hcl:"protocol,optional" json:"protocol,omitempty"`
	Tag      string `hcl:"tag,optional" json:"tag,omitempty"`
	Facility int    `hcl:"facility,optional" json:"facility,omitempty"`
}

// Default returns a Config with every optional field set to the
// defaults named in §6.
func Default() Config {
	return Config{
		SchemaVersion:         CurrentSchemaVersion,
		InputMethod:           "file",
		ServerPort:            6379,
		ServerTopic:           "attacks",
		ServerRetryDelay:      5 * time.Second,
		ServerMaxAttempts:     10,
		DashboardPort:         6379,
		DashboardTopic:        "recommendations",
		DashboardContent:      "both",
		DashboardAttempts:     3,
		DashboardRetryDelay:   2 * time.Second,
		DashboardTimeout:      10 * time.Second,
		HSPLMergeInclusions:   true,
		HSPLMergeWithAnyPorts: true,
		HSPLMergeWithSubnets:  true,
		HSPLMergingThreshold:  10,
		HSPLMergingMinBits:    1,
		HSPLMergingMaxBits:    8,
		Limit: &LimitConfig{
			MaxConnections: 20,
			RateLimit:      "100kbit/s",
		},
		Metrics: &MetricsConfig{Addr: ":9090"},
		Syslog:  &SyslogConfig{Port: 514, Protocol: "udp", Tag: "mitigated", Facility: 1},
		StateDir: "/var/lib/mitigated",
		LogDir:   "/var/log/mitigated",
		PIDFile:  "/var/run/mitigated.pid",
	}
}
