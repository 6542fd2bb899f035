// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hspl

import (
	"fmt"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
	"mitigated.example.com/engine/internal/recipe"
)

// Synthesize applies the selected recipe's filters to the attack's
// surviving events and emits one HSPL per event that PASSES the
// predicate. Per the Open Question in §9, this implementation keeps
// events that pass the filter, consistent with the over-restrictiveness
// filter in §4.2 (which drops a recipe only when no event would remain).
func Synthesize(reg *plugin.Registry, r *recipe.Recipe, attack *eventmodel.Attack) (*Set, error) {
	ts, _ := attack.Timestamp()
	set := &Set{
		Context: Context{
			Severity:    attack.Severity,
			Type:        attack.Type,
			Timestamp:   ts.Format("2006-01-02T15:04:05Z07:00"),
			AnomalyName: attack.AnomalyName,
		},
	}

	events := attack.Events()
	n := 0
	for _, e := range events {
		if !eventPasses(reg, r, e) {
			continue
		}

		object := e.Attacker
		if r.ObjectConstraints != nil && r.ObjectConstraints.AnyPort {
			object = object.WithAnyPort()
		}

		tcType, _ := e.Field("protocol")

		tc := TrafficConstraints{Type: tcType}
		if r.TrafficConstraints != nil {
			if r.TrafficConstraints.Type != "" {
				tc.Type = r.TrafficConstraints.Type
			}
			if tc.Type == "TCP" && r.TrafficConstraints.MaxConnections > 0 {
				tc.MaxConnections = r.TrafficConstraints.MaxConnections
			}
			if r.TrafficConstraints.RateLimit != "" {
				tc.RateLimit = r.TrafficConstraints.RateLimit
			}
		}

		n++
		set.Items = append(set.Items, &HSPL{
			Name:               fmt.Sprintf("%s-%d", r.Name, n),
			Subject:            e.Target,
			Action:             r.Action,
			Object:             object,
			TrafficConstraints: tc,
		})
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// eventPasses evaluates the recipe's filters against one event, reusing
// the same and|or evaluation semantics as the over-restrictiveness check
// (§4.2 step 4, §4.3 emission rule).
func eventPasses(reg *plugin.Registry, r *recipe.Recipe, event eventmodel.AttackEvent) bool {
	if r.Filters == nil || len(r.Filters.Predicates) == 0 {
		return true
	}
	mode := r.Filters.EvaluationMode()
	allMatch := true
	anyMatch := false
	for _, pred := range r.Filters.Predicates {
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
