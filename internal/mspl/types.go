// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package mspl projects an HSPL set into a Medium-level Security Policy
// bound to a concrete enforcement node (§4.4), and assembles the final
// MSPL/recommendations XML document (§4.5).
package mspl

import (
	"encoding/xml"

	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/schema"
)

// Condition is the tagged union of condition kinds an MSPL rule can carry
// (§3: "condition{packet-filter | application-layer | stateful |
// traffic-flow}"). Only the packet-filter and traffic-flow kinds, which
// the two action plug-ins defined in §4.4 populate, are modelled;
// application-layer and stateful conditions are not represented.
type Condition struct {
	PacketFilter *PacketFilterCondition `xml:"packet-filter,omitempty"`
	TrafficFlow  *TrafficFlowCondition  `xml:"traffic-flow,omitempty"`
}

// PacketFilterCondition matches source/destination address+port and
// protocol, as emitted by the Drop plug-in.
type PacketFilterCondition struct {
	Direction   string `xml:"direction,attr"`
	Protocol    string `xml:"protocol,attr,omitempty"`
	SourceAddr  string `xml:"source-address,omitempty"`
	SourcePort  string `xml:"source-port,omitempty"`
	DestAddr    string `xml:"destination-address,omitempty"`
	DestPort    string `xml:"destination-port,omitempty"`
}

// TrafficFlowCondition carries the rate/connection-limiting parameters
// emitted by the Limit plug-in.
type TrafficFlowCondition struct {
	Protocol       string `xml:"protocol,attr,omitempty"`
	SourceAddr     string `xml:"source-address,omitempty"`
	DestAddr       string `xml:"destination-address,omitempty"`
	MaxConnections int    `xml:"max-connections,attr,omitempty"`
	RateLimit      string `xml:"rate-limit,attr,omitempty"`
}

// Rule is one priority-ordered entry in a filtering-configuration
// (§3). Priorities are dense and strictly increasing from 1 (§3 invariant 2).
type Rule struct {
	Priority  int       `xml:"priority,attr"`
	Action    string    `xml:"action,attr"`
	Condition Condition `xml:"condition"`
}

// Configuration is the typed payload of an it-resource (§3:
// "filtering-configuration{default-action, resolution-strategy, rule*}").
type Configuration struct {
	XSIType            string `xml:"xsi:type,attr"`
	DefaultAction      string `xml:"default-action,attr"`
	ResolutionStrategy string `xml:"resolution-strategy,attr"`
	Rules              []Rule `xml:"rule"`
}

// ItResource binds a Configuration to a concrete enforcement node id.
type ItResource struct {
	ID            string        `xml:"id,attr"`
	Configuration Configuration `xml:"configuration"`
}

// Context mirrors the HSPL context carried through to the MSPL (§3).
type Context = hspl.Context

// MSPL is one emitted Medium-level Security Policy (§3).
type MSPL struct {
	XMLName    xml.Name   `xml:"http://security.polito.it/shield/mspl mspl"`
	Context    Context    `xml:"context"`
	ItResource ItResource `xml:"it-resource"`
}

// Recommendations wraps one MSPL per anomaly, per §4.5's "recommendations
// wrapper holding one set per anomaly".
type Recommendations struct {
	XMLName xml.Name `xml:"recommendations"`
	MSPLs   []*MSPL  `xml:"mspl"`
}

// Validate schema-checks rule priority density/monotonicity (§3 invariant 2).
func (m *MSPL) Validate() error {
	var verr schema.Errors
	verr.RequireNonEmpty("it-resource.id", m.ItResource.ID)
	verr.RequireEnum("configuration.default-action", m.ItResource.Configuration.DefaultAction, "accept", "drop")
	rules := m.ItResource.Configuration.Rules
	for i, r := range rules {
		if r.Priority != i+1 {
			verr.Add("rule[%d]: priority %d is not dense/strictly-increasing from 1", i, r.Priority)
		}
		verr.RequireNonEmpty("rule[].action", r.Action)
	}
	return verr.Err("mspl")
}
