// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mspl

import "mitigated.example.com/engine/internal/hspl"

// ActionConfig carries the plug-in-scoped configuration fallbacks named
// in §6 (e.g. limit.maxConnections/limit.rateLimit).
type ActionConfig struct {
	LimitMaxConnections int
	LimitRateLimit      string
}

// Action is the interface an action plug-in implements to refine an HSPL
// set into concrete rules appended to a Builder (§4.4). Registered in the
// plug-in registry as an opaque `any` to avoid an import cycle; Project
// type-asserts back to this interface.
type Action interface {
	// Name returns the declared action string (e.g. "drop", "limit").
	Name() string
	// DefaultAction returns the filtering-configuration's default-action.
	DefaultAction() string
	// BuildRules appends this plug-in's rules for the given HSPL items to b.
	BuildRules(b *Builder, items []*hspl.HSPL, cfg ActionConfig)
}
