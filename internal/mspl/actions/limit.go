// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package actions

import (
	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/mspl"
	"mitigated.example.com/engine/internal/plugin"
)

// LimitCapabilities is the landscape capability this plug-in requires.
const LimitCapabilities = "rate-limit"

const (
	defaultMaxConnections = 20
	defaultRateLimit      = "100kbit/s"
)

type limitAction struct{}

func (limitAction) Name() string          { return "limit" }
func (limitAction) DefaultAction() string { return "drop" }

// BuildRules implements §4.4's Limit plug-in: if any HSPL uses TCP,
// prepend a reject rule carrying maxConnections; then emit an accept
// rule per HSPL with protocol, maxConnections (TCP only, falling back to
// cfg.LimitMaxConnections or 20) and rateLimit (falling back to
// cfg.LimitRateLimit or 100kbit/s).
func (limitAction) BuildRules(b *mspl.Builder, items []*hspl.HSPL, cfg mspl.ActionConfig) {
	maxConns := cfg.LimitMaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	rateLimit := cfg.LimitRateLimit
	if rateLimit == "" {
		rateLimit = defaultRateLimit
	}

	hasTCP := false
	for _, h := range items {
		if h.TrafficConstraints.Type == "TCP" {
			hasTCP = true
			break
		}
	}

	if hasTCP {
		b.AddTrafficFlowRule("reject", mspl.TrafficFlowCondition{
			Protocol:       "TCP",
			MaxConnections: maxConns,
		})
	}

	for _, h := range items {
		tc := h.TrafficConstraints
		cond := mspl.TrafficFlowCondition{
			Protocol:   tc.Type,
			SourceAddr: h.Object.String(),
			DestAddr:   h.Subject.String(),
			RateLimit:  rateLimit,
		}
		if tc.RateLimit != "" {
			cond.RateLimit = tc.RateLimit
		}
		if tc.Type == "TCP" {
			cond.MaxConnections = maxConns
			if tc.MaxConnections > 0 {
				cond.MaxConnections = tc.MaxConnections
			}
		}
		b.AddTrafficFlowRule("accept", cond)
	}
}

func init() {
	plugin.Default.RegisterAction(plugin.ActionDescriptor{
		ID:           "limit",
		Action:       "limit",
		Capabilities: []string{LimitCapabilities},
		Score:        1,
		Impl:         limitAction{},
	})
}
