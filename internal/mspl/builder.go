// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mspl

// Builder assembles a filtering-configuration's rule list in the order
// rules are added and assigns dense, strictly-increasing priorities from
// 1 on Build(), an accumulate-then-Build() shape generalized from
// nftables-line assembly to typed MSPL Rule values.
type Builder struct {
	resourceID         string
	defaultAction      string
	resolutionStrategy string
	rules              []Rule
}

// NewBuilder creates a filtering-configuration builder for one enforcement
// node, with the given default action and resolution strategy (§4.4 uses
// FMR — first-matching-rule — for both action plug-ins).
func NewBuilder(resourceID, defaultAction, resolutionStrategy string) *Builder {
	return &Builder{
		resourceID:         resourceID,
		defaultAction:      defaultAction,
		resolutionStrategy: resolutionStrategy,
	}
}

// AddPacketFilterRule appends a packet-filter rule; its priority is
// assigned positionally at Build() time.
func (b *Builder) AddPacketFilterRule(action string, cond PacketFilterCondition) {
	b.rules = append(b.rules, Rule{Action: action, Condition: Condition{PacketFilter: &cond}})
}

// AddTrafficFlowRule appends a traffic-flow (rate/connection-limiting) rule.
func (b *Builder) AddTrafficFlowRule(action string, cond TrafficFlowCondition) {
	b.rules = append(b.rules, Rule{Action: action, Condition: Condition{TrafficFlow: &cond}})
}

// Build assembles the it-resource with dense, strictly-increasing
// priorities starting at 1, in addition order.
func (b *Builder) Build() ItResource {
	rules := make([]Rule, len(b.rules))
	for i, r := range b.rules {
		r.Priority = i + 1
		rules[i] = r
	}
	return ItResource{
		ID: b.resourceID,
		Configuration: Configuration{
			XSIType:            "filtering-configuration",
			DefaultAction:      b.defaultAction,
			ResolutionStrategy: b.resolutionStrategy,
			Rules:              rules,
		},
	}
}
