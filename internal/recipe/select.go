// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package recipe

import (
	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/plugin"
)

// Select implements §4.2's full algorithm: candidate set, enforceability
// filter, over-restrictiveness filter, and score-based tie-breaking. It
// returns (nil, false) when no recipe survives (NoRecipe, §7).
func Select(reg *plugin.Registry, lib *Library, land *landscape.Landscape, attack *eventmodel.Attack) (*Recipe, *plugin.ActionDescriptor, bool) {
	candidates := lib.Candidates(attack.Type, attack.Severity)
	if len(candidates) == 0 {
		return nil, nil, false
	}

	nodeCaps := land.AllCapabilitySets()
	events := attack.Events()

	type survivor struct {
		r      *Recipe
		action plugin.ActionDescriptor
	}
	var survivors []survivor

	for _, r := range candidates {
		action, ok := plugin.BestActionFor(reg, r.Action, nodeCaps)
		if !ok {
			continue // not enforceable by any (plug-in, node) pair
		}
		if isOverRestrictive(reg, r, events) {
			continue
		}
		survivors = append(survivors, survivor{r: r, action: action})
	}

	if len(survivors) == 0 {
		return nil, nil, false
	}

	best := survivors[0]
	for _, s := range survivors[1:] {
		if s.action.Score > best.action.Score {
			best = s
		}
	}
	return best.r, &best.action, true
}

// isOverRestrictive reports whether every event in the attack fails the
// recipe's filters block, i.e. no event would be mitigated (§4.2 step 4).
// A recipe with no filters is trivially not over-restrictive.
func isOverRestrictive(reg *plugin.Registry, r *Recipe, events []eventmodel.AttackEvent) bool {
	if r.Filters == nil || len(r.Filters.Predicates) == 0 {
		return false
	}
	for _, e := range events {
		if evaluateFilters(reg, r.Filters, e) {
			return false // at least one event passes -> not over-restrictive
		}
	}
	return true
}

// evaluateFilters evaluates a recipe's <filters> block against one event,
// applying the declared and|or evaluation mode across tagged predicates.
func evaluateFilters(reg *plugin.Registry, f *Filters, event eventmodel.AttackEvent) bool {
	if len(f.Predicates) == 0 {
		return true
	}
	mode := f.EvaluationMode()
	allMatch := true
	anyMatch := false
	for _, pred := range f.Predicates {
		fd, ok := reg.Filter(pred.XMLName.Local)
		if !ok {
			allMatch = false
			continue
		}
		if fd.Eval(pred.Value, event) {
			anyMatch = true
		} else {
			allMatch = false
		}
	}
	if mode == "and" {
		return allMatch
	}
	return anyMatch
}
