// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mspl

import (
	"context"
	"math/rand"
	"sort"

	"mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/plugin"
)

// Resolver maps a logical node id plus the attack type being mitigated
// to a concrete running instance id (§4.4 step 2, §9 "any external
// orchestrator lookup ... specified only as an optional resolver
// hook"). Resolver failure falls back to the chosen node id; callers
// are expected to bound the call by vnsfo_timeout via ctx.
type Resolver func(ctx context.Context, nodeID, attackType string) (string, error)

// candidate is one enforceable (plug-in, node) pair.
type candidate struct {
	action plugin.ActionDescriptor
	nodeID string
}

// Project picks a (plug-in, node-id) pair uniformly at random among pairs
// whose plug-in declares the HSPL set's action and whose capabilities are
// a subset of the node's, optionally resolves the node id, and delegates
// rule construction to the plug-in (§4.4). Returns (nil, false) when no
// pair is enforceable — the NoEnforcer condition (§7), which upstream
// treats as NoRecipe-equivalent.
func Project(ctx context.Context, reg *plugin.Registry, land *landscape.Landscape, set *hspl.Set, action string, rng *rand.Rand, resolver Resolver, cfg ActionConfig) (*MSPL, bool, error) {
	if len(set.Items) == 0 {
		return nil, false, nil
	}

	var candidates []candidate
	for _, ad := range reg.ActionsFor(action) {
		for nodeID, caps := range land.Nodes {
			if isSubset(ad.Capabilities, caps) {
				candidates = append(candidates, candidate{action: ad, nodeID: nodeID})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	// land.Nodes is a map; sort before indexing with rng.Intn so the
	// choice is reproducible across runs for a fixed-seed rng, not just
	// across a single process's map iteration order.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].nodeID != candidates[j].nodeID {
			return candidates[i].nodeID < candidates[j].nodeID
		}
		return candidates[i].action.ID < candidates[j].action.ID
	})

	chosen := candidates[rng.Intn(len(candidates))]

	resourceID := chosen.nodeID
	if resolver != nil {
		if resolved, err := resolver(ctx, chosen.nodeID, set.Context.Type); err == nil {
			resourceID = resolved
		}
	}

	impl, ok := chosen.action.Impl.(Action)
	if !ok {
		return nil, false, errors.Errorf(errors.KindNoEnforcer, "mspl: action plug-in %q does not implement mspl.Action", chosen.action.ID)
	}

	builder := NewBuilder(resourceID, impl.DefaultAction(), "FMR")
	impl.BuildRules(builder, set.Items, cfg)

	m := &MSPL{
		Context:    set.Context,
		ItResource: builder.Build(),
	}
	if err := m.Validate(); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func isSubset(required, have []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
