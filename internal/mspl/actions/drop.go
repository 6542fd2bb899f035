// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package actions provides the two concrete action plug-ins defined in
// §4.4: Drop and Limit. Both register themselves into the process-wide
// plug-in registry from init(), per the REDESIGN FLAG in §9.
package actions

import (
	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/mspl"
	"mitigated.example.com/engine/internal/plugin"
)

// DropCapabilities is the landscape capability this plug-in requires.
const DropCapabilities = "packet-filter"

type dropAction struct{}

func (dropAction) Name() string          { return "drop" }
func (dropAction) DefaultAction() string { return "accept" }

// BuildRules emits, for each HSPL, a drop rule with direction inbound,
// copying subject/object into destination/source address+port and
// protocol from traffic-constraints. A "TCP+UDP" protocol duplicates the
// rule for TCP and UDP (§4.4, end-to-end scenario 3 in §8).
func (dropAction) BuildRules(b *mspl.Builder, items []*hspl.HSPL, _ mspl.ActionConfig) {
	for _, h := range items {
		for _, proto := range expandProtocols(h.TrafficConstraints.Type) {
			b.AddPacketFilterRule("drop", mspl.PacketFilterCondition{
				Direction:  "inbound",
				Protocol:   proto,
				SourceAddr: h.Object.String(),
				SourcePort: h.Object.Port,
				DestAddr:   h.Subject.String(),
				DestPort:   h.Subject.Port,
			})
		}
	}
}

// expandProtocols splits a "TCP+UDP" traffic-constraints type into its
// component protocols; any other value is returned as a single-element
// slice unchanged.
func expandProtocols(tcType string) []string {
	if tcType == "TCP+UDP" {
		return []string{"TCP", "UDP"}
	}
	return []string{tcType}
}

func init() {
	plugin.Default.RegisterAction(plugin.ActionDescriptor{
		ID:           "drop",
		Action:       "drop",
		Capabilities: []string{DropCapabilities},
		Score:        1,
		Impl:         dropAction{},
	})
}
