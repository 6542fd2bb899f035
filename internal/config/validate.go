// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"strings"

	"mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/schema"
)

// Validate checks the structural and range invariants named in §6 and
// §7. A failing Config is a KindConfig error (fatal at startup, §7
// "only KindConfig is process-fatal").
func (c *Config) Validate() error {
	var verr schema.Errors
	verr.RequireNonEmpty("landscape_file", c.LandscapeFile)
	verr.RequireNonEmpty("recipes_directory", c.RecipesDirectory)
	verr.RequireEnum("input_method", c.InputMethod, "file", "message", "both")

	if c.InputMethod == "message" || c.InputMethod == "both" {
		verr.RequireNonEmpty("server_address", c.ServerAddress)
		verr.RequireNonEmpty("server_topic", c.ServerTopic)
	}

	// dashboard_content degrades to "both" for any value other than
	// exactly "hspl"/"mspl" rather than rejecting the config, matching
	// serve.go's DashOnHSPL/DashOnMSPL OR-pattern.
	if c.DashboardContent != "hspl" && c.DashboardContent != "mspl" {
		c.DashboardContent = "both"
	}
	verr.RequireRange("dashboard_attempts", c.DashboardAttempts, 1, 100)

	verr.RequireRange("hspl_merging_threshold", c.HSPLMergingThreshold, 0, 1<<20)
	verr.RequireRange("hspl_merging_min_bits", c.HSPLMergingMinBits, 0, 32)
	verr.RequireRange("hspl_merging_max_bits", c.HSPLMergingMaxBits, 0, 32)
	if c.HSPLMergingMinBits > c.HSPLMergingMaxBits {
		verr.Add("hspl_merging_min_bits (%d) must not exceed hspl_merging_max_bits (%d)", c.HSPLMergingMinBits, c.HSPLMergingMaxBits)
	}

	if c.Limit != nil {
		verr.RequireRange("limit.max_connections", c.Limit.MaxConnections, 1, 1<<20)
	}

	if c.VNSFO != nil && c.VNSFO.Enabled {
		verr.RequireNonEmpty("vnsfo.vnsfo_base_url", c.VNSFO.BaseURL)
	}

	if verr.HasErrors() {
		return errors.Errorf(errors.KindConfig, "config: %s", strings.Join(verr.Violations, "; "))
	}
	return nil
}
