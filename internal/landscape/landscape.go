// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package landscape loads and validates the enforcement-fabric inventory:
// a mapping from node id to the set of capabilities that node supports.
package landscape

import (
	"encoding/xml"
	"os"

	"mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/schema"
)

// xmlLandscape mirrors §6's "root holds it-resource[@id] children each
// containing capability elements."
type xmlLandscape struct {
	XMLName   xml.Name       `xml:"landscape"`
	Resources []xmlItResource `xml:"it-resource"`
}

type xmlItResource struct {
	ID           string        `xml:"id,attr"`
	Capabilities []xmlCapability `xml:"capability"`
}

type xmlCapability struct {
	Name string `xml:",chardata"`
}

// Landscape is the validated, materialized {node-id -> capability-set}.
type Landscape struct {
	Nodes map[string][]string
}

// Load reads and schema-validates a landscape XML file.
func Load(path string) (*Landscape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "landscape: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates landscape XML from bytes.
func Parse(data []byte) (*Landscape, error) {
	var doc xmlLandscape
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidPolicyXML, "landscape: malformed XML")
	}

	var verr schema.Errors
	nodes := make(map[string][]string, len(doc.Resources))
	for i, r := range doc.Resources {
		verr.RequireNonEmpty("it-resource[].id", r.ID)
		if _, dup := nodes[r.ID]; dup {
			verr.Add("it-resource[%d]: duplicate id %q", i, r.ID)
			continue
		}
		caps := make([]string, 0, len(r.Capabilities))
		for _, c := range r.Capabilities {
			verr.RequireNonEmpty("it-resource[].capability", c.Name)
			caps = append(caps, c.Name)
		}
		nodes[r.ID] = caps
	}
	if err := verr.Err("landscape"); err != nil {
		return nil, err
	}

	return &Landscape{Nodes: nodes}, nil
}

// Capabilities returns the capability set declared for a node, or nil.
func (l *Landscape) Capabilities(nodeID string) ([]string, bool) {
	caps, ok := l.Nodes[nodeID]
	return caps, ok
}

// AllCapabilitySets returns every node's capability set, in no particular
// order; used by recipe/action enforceability checks which only need to
// know whether SOME node supports a capability subset.
func (l *Landscape) AllCapabilitySets() [][]string {
	out := make([][]string, 0, len(l.Nodes))
	for _, caps := range l.Nodes {
		out = append(out, caps)
	}
	return out
}

// NodeIDs returns the node ids whose capability set is a superset of
// required, in the iteration order of the underlying map (the MSPL
// projector imposes its own determinism via the injected RNG).
func (l *Landscape) NodeIDs(required []string) []string {
	var out []string
	for id, caps := range l.Nodes {
		if isSubset(required, caps) {
			out = append(out, id)
		}
	}
	return out
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
