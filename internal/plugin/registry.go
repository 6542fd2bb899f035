// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package plugin holds the three statically-registered plug-in tables
// (Parser, Filter, Action) that replace live discovery per the
// REDESIGN FLAG in §9: discovery is Go init()-time registration into a
// table, not a directory scan of a live object protocol.
package plugin

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"mitigated.example.com/engine/internal/eventmodel"
)

// ParserFunc turns one raw CSV-body line into an AttackEvent. Returning
// ok=false silently skips the line (§4.1: "produce AttackEvent or none").
type ParserFunc func(lineNo int, fields []string) (event eventmodel.AttackEvent, ok bool, err error)

// ParserDescriptor is a registered parser plug-in: chosen by matching the
// attack type against TypePattern.
type ParserDescriptor struct {
	ID          string
	TypePattern *regexp.Regexp
	Parse       ParserFunc
}

// FilterFunc evaluates one predicate value against an event.
type FilterFunc func(value string, event eventmodel.AttackEvent) bool

// FilterDescriptor is a registered filter plug-in, looked up by the tag
// name used inside a recipe's <filters> block.
type FilterDescriptor struct {
	ID  string
	Tag string
	Eval FilterFunc
}

// ActionDescriptor is a registered action plug-in: it declares the HSPL
// action it refines, the landscape capabilities it requires, and a score
// used to break recipe-selection ties (§4.2 step 5). Impl is typed `any`
// rather than a concrete interface here to avoid an import cycle with
// internal/mspl (which defines the Action interface action plug-ins
// satisfy and type-asserts Impl back to it during projection).
type ActionDescriptor struct {
	ID           string
	Action       string
	Capabilities []string
	Score        int
	Impl         any
}

// Registry holds the three plug-in tables. The zero value is usable; it
// starts empty and is populated by RegisterParser/RegisterFilter/
// RegisterAction, normally from package init() functions.
type Registry struct {
	mu      sync.RWMutex
	parsers []ParserDescriptor
	filters map[string]FilterDescriptor
	actions []ActionDescriptor
}

// Default is the process-wide registry populated by plug-in packages'
// init() functions. Per §5, it is read-only after initialization and
// shared across the file and message adapter threads without locking
// concerns once startup completes; the embedded mutex only protects
// against registration happening concurrently with lookups during tests.
var Default = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]FilterDescriptor)}
}

// RegisterParser adds a parser plug-in. Declaration order is preserved,
// which matters for deterministic first-match selection.
func (r *Registry) RegisterParser(d ParserDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = append(r.parsers, d)
}

// RegisterFilter adds a filter plug-in keyed by its tag name.
func (r *Registry) RegisterFilter(d FilterDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[d.Tag] = d
}

// RegisterAction adds an action plug-in.
func (r *Registry) RegisterAction(d ActionDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, d)
}

// ParserFor returns the first registered parser whose declared pattern
// matches the attack type.
func (r *Registry) ParserFor(attackType string) (ParserDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parsers {
		if p.TypePattern.MatchString(attackType) {
			return p, true
		}
	}
	return ParserDescriptor{}, false
}

// Filter returns the filter plug-in registered under the given tag.
func (r *Registry) Filter(tag string) (FilterDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[tag]
	return f, ok
}

// ActionsFor returns all action plug-ins declaring the given action,
// in registration order.
func (r *Registry) ActionsFor(action string) []ActionDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ActionDescriptor
	for _, a := range r.actions {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

// BestActionFor returns the action plug-in declaring `action` whose
// capabilities are satisfiable by at least one node's capability set in
// `landscapeCaps`, and that has the maximum Score; ties are broken by
// registration order (§4.2 step 5).
func BestActionFor(r *Registry, action string, landscapeCaps [][]string) (ActionDescriptor, bool) {
	candidates := r.ActionsFor(action)
	var best ActionDescriptor
	found := false
	for _, c := range candidates {
		if !anyNodeSupports(c.Capabilities, landscapeCaps) {
			continue
		}
		if !found || c.Score > best.Score {
			best = c
			found = true
		}
	}
	return best, found
}

func anyNodeSupports(required []string, nodeCaps [][]string) bool {
	for _, caps := range nodeCaps {
		if isSubset(required, caps) {
			return true
		}
	}
	return false
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

// AllParsers returns a stable-ordered snapshot, useful for diagnostics.
func (r *Registry) AllParsers() []ParserDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ParserDescriptor, len(r.parsers))
	copy(out, r.parsers)
	return out
}

// String renders a registry summary for startup diagnostics.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.filters))
	for t := range r.filters {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return fmt.Sprintf("plugin registry: %d parsers, %d filters (%v), %d actions",
		len(r.parsers), len(r.filters), tags, len(r.actions))
}
