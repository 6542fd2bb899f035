// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package recipe parses, schema-validates and indexes the recipe library,
// and implements recipe selection for an attack (§4.2).
package recipe

import (
	"encoding/xml"
	"log"
	"os"
	"path/filepath"

	"mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/schema"
)

// Recipe is the §3-defined recipe shape, namespace
// http://security.polito.it/shield/recipe per §6.
type Recipe struct {
	XMLName     xml.Name           `xml:"http://security.polito.it/shield/recipe recipe"`
	Name        string             `xml:"name,attr"`
	Action      string             `xml:"action,attr"`
	MinSeverity eventmodel.Severity `xml:"min-severity,attr"`
	MaxSeverity eventmodel.Severity `xml:"max-severity,attr"`
	Type        string             `xml:"type,attr"`

	TrafficConstraints *TrafficConstraints `xml:"traffic-constraints"`
	ObjectConstraints  *ObjectConstraints  `xml:"object-constraints"`
	Filters            *Filters           `xml:"filters"`

	// DeclOrder is the position in which this recipe was parsed, used for
	// deterministic tie-breaking (§4.2 step 5, §4.3 determinism).
	DeclOrder int `xml:"-"`
}

type TrafficConstraints struct {
	Type           string `xml:"type,attr"`
	MaxConnections int    `xml:"max-connections,attr,omitempty"`
	RateLimit      string `xml:"rate-limit,attr,omitempty"`
}

type ObjectConstraints struct {
	AnyPort bool `xml:"any-port,attr"`
}

// Filters is the over-restrictiveness / synthesis-time predicate block.
// Evaluation defaults to "or" per §4.2 step 4.
type Filters struct {
	Evaluation string          `xml:"evaluation,attr"`
	Predicates []FilterPredicate `xml:",any"`
}

// FilterPredicate is one tagged predicate value inside <filters>; the tag
// name is the filter plug-in id, the chardata is the value passed to it.
type FilterPredicate struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// EvaluationMode returns the effective and|or mode, defaulting to "or".
func (f *Filters) EvaluationMode() string {
	if f == nil || f.Evaluation == "" {
		return "or"
	}
	return f.Evaluation
}

// Library is the loaded, schema-validated, indexed recipe set.
type Library struct {
	recipes []*Recipe
}

// Load parses every *.xml file under dir, schema-validating each; invalid
// files are dropped with a log-warning, per §4.2 step 1.
func Load(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "recipe: read dir %s", dir)
	}

	lib := &Library{}
	order := 0
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".xml" {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[RECIPE] Warning: cannot read %s: %v", path, err)
			continue
		}
		r, err := parseOne(data)
		if err != nil {
			log.Printf("[RECIPE] Warning: dropping invalid recipe %s: %v", path, err)
			continue
		}
		r.DeclOrder = order
		order++
		lib.recipes = append(lib.recipes, r)
	}
	return lib, nil
}

func parseOne(data []byte) (*Recipe, error) {
	var r Recipe
	if err := xml.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidPolicyXML, "recipe: malformed XML")
	}

	var verr schema.Errors
	verr.RequireNonEmpty("recipe.name", r.Name)
	verr.RequireNonEmpty("recipe.action", r.Action)
	verr.RequireNonEmpty("recipe.type", r.Type)
	verr.RequireRange("recipe.min-severity", int(r.MinSeverity), 1, 4)
	verr.RequireRange("recipe.max-severity", int(r.MaxSeverity), 1, 4)
	if r.MinSeverity > r.MaxSeverity {
		verr.Add("recipe: min-severity %d > max-severity %d", r.MinSeverity, r.MaxSeverity)
	}
	if err := verr.Err("recipe " + r.Name); err != nil {
		return nil, err
	}
	return &r, nil
}

// Candidates returns recipes whose type matches and whose severity range
// contains attack.Severity (§4.2 step 2).
func (l *Library) Candidates(attackType string, severity eventmodel.Severity) []*Recipe {
	var out []*Recipe
	for _, r := range l.recipes {
		if r.Type == attackType && r.MinSeverity <= severity && severity <= r.MaxSeverity {
			out = append(out, r)
		}
	}
	return out
}

// All returns every loaded recipe, in declaration order.
func (l *Library) All() []*Recipe {
	out := make([]*Recipe, len(l.recipes))
	copy(out, l.recipes)
	return out
}
