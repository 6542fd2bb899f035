// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package hspl synthesizes High-level Security Policies from a selected
// recipe and an attack's surviving events, and implements the HSPL
// set-algebra optimizer — the core of the core (§4.3).
package hspl

import (
	"encoding/xml"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/schema"
)

// TrafficConstraints mirrors §3's HSPL traffic-constraints block.
type TrafficConstraints struct {
	Type           string `xml:"type,attr"`
	MaxConnections int    `xml:"max-connections,attr,omitempty"`
	RateLimit      string `xml:"rate-limit,attr,omitempty"`
}

// Equal reports XML-equality per §4.3's inclusion predicate.
func (t TrafficConstraints) Equal(o TrafficConstraints) bool {
	return t.Type == o.Type && t.MaxConnections == o.MaxConnections && t.RateLimit == o.RateLimit
}

// Context is the per-set metadata carried alongside every HSPL (§3).
type Context struct {
	Severity    eventmodel.Severity
	Type        string
	Timestamp   string
	AnomalyName string `xml:"anomaly-name,omitempty"`
}

// HSPL is one emitted High-level Security Policy (§3).
type HSPL struct {
	XMLName            xml.Name            `xml:"http://security.polito.it/shield/hspl hspl"`
	Name               string              `xml:"name,attr"`
	Subject            eventmodel.Endpoint `xml:"subject"`
	Action             string              `xml:"action,attr"`
	Object             eventmodel.Endpoint `xml:"object"`
	TrafficConstraints TrafficConstraints  `xml:"traffic-constraints"`
}

// Set is a named collection of HSPLs sharing one Context (one per
// attack/anomaly).
type Set struct {
	XMLName xml.Name `xml:"http://security.polito.it/shield/hspl hspl-set"`
	Context Context  `xml:"context"`
	Items   []*HSPL  `xml:"hspl"`
}

// Validate schema-checks every HSPL in the set (§3 invariant 1).
func (s *Set) Validate() error {
	var verr schema.Errors
	for i, h := range s.Items {
		verr.RequireNonEmpty("hspl[].name", h.Name)
		verr.RequireNonEmpty("hspl[].action", h.Action)
		if h.Subject.Raw == "" {
			verr.Add("hspl[%d].subject: must not be empty", i)
		}
		if h.Object.Raw == "" {
			verr.Add("hspl[%d].object: must not be empty", i)
		}
	}
	return verr.Err("hspl set")
}

