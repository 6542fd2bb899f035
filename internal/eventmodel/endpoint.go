// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package eventmodel

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// PortWildcard is the canonical token for a port wildcard ("*" and "any" both unify to it).
const PortWildcard = "*"

// Endpoint is a parsed ADDR[/PREFIX][:PORT] attacker/target reference.
//
// Only dotted-quad IPv4 forms are structured; anything else is kept as an
// Opaque string and is invisible to the optimizer (§4.3: "non-matching
// HSPLs are left untouched").
type Endpoint struct {
	Raw    string
	Opaque bool

	Addr   [4]byte
	Prefix int // [0,32]
	Port   string
}

// ParseEndpoint parses s against §4.3's object regex:
// ^(\d+\.){3}\d+(/\d+)?(:(\d+|\*|any))?$. A form that does not match is
// returned as an Opaque endpoint rather than rejected; only the empty
// string is an error.
func ParseEndpoint(s string) (Endpoint, error) {
	if s == "" {
		return Endpoint{}, fmt.Errorf("eventmodel: empty endpoint")
	}

	ep := Endpoint{Raw: s}

	addrPart := s
	port := ""
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		addrPart = s[:idx]
		port = s[idx+1:]
	}

	prefix := 32
	cidrAddr := addrPart
	if idx := strings.IndexByte(addrPart, '/'); idx >= 0 {
		cidrAddr = addrPart[:idx]
		p, err := strconv.Atoi(addrPart[idx+1:])
		if err != nil || p < 0 || p > 32 {
			ep.Opaque = true
			return ep, nil
		}
		prefix = p
	}

	addr, ok := parseIPv4(cidrAddr)
	if !ok {
		ep.Opaque = true
		return ep, nil
	}

	ep.Addr = addr
	ep.Prefix = prefix
	ep.Port = normalizePort(port)
	if ep.Port != PortWildcard && !isAllDigits(ep.Port) {
		// Object does not match §4.3's ^...(:(\d+|\*|any))?$ pattern.
		ep.Opaque = true
	}
	return ep, nil
}

// normalizePort unifies "any" and "" into the canonical wildcard token.
func normalizePort(port string) string {
	switch strings.ToLower(strings.TrimSpace(port)) {
	case "", "*", "any":
		return PortWildcard
	default:
		return port
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseIPv4(s string) ([4]byte, bool) {
	var out [4]byte
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return out, false
		}
		out[i] = byte(n)
	}
	return out, true
}

// NetworkAddr returns the 32-bit unsigned network address with host bits
// below the given prefix length zeroed, per §4.3's key₃ definition.
func (e Endpoint) NetworkAddr(prefixLen int) uint32 {
	a := uint32(e.Addr[0])<<24 | uint32(e.Addr[1])<<16 | uint32(e.Addr[2])<<8 | uint32(e.Addr[3])
	if prefixLen >= 32 {
		return a
	}
	if prefixLen <= 0 {
		return 0
	}
	shift := 32 - prefixLen
	return (a >> uint(shift)) << uint(shift)
}

// String renders the endpoint back to canonical ADDR[/PREFIX][:PORT] form.
// A parsed endpoint always carries a port, and a missing or "any" port is
// rendered as the wildcard, so "10.0.0.1" renders as "10.0.0.1:*".
func (e Endpoint) String() string {
	if e.Opaque {
		return e.Raw
	}
	s := fmt.Sprintf("%d.%d.%d.%d", e.Addr[0], e.Addr[1], e.Addr[2], e.Addr[3])
	if e.Prefix != 32 {
		s += fmt.Sprintf("/%d", e.Prefix)
	}
	if e.Port != "" {
		s += ":" + e.Port
	}
	return s
}

// WithAnyPort returns a copy of the endpoint with its port rewritten to the
// wildcard token, as used when a recipe sets object-constraints/any-port.
func (e Endpoint) WithAnyPort() Endpoint {
	e.Port = PortWildcard
	return e
}

// WithPrefix returns a copy of the endpoint with a new prefix length and its
// address masked accordingly, used by subnet coalescing to rewrite the
// surviving HSPL's object to NET/bits.
func (e Endpoint) WithPrefix(prefixLen int) Endpoint {
	n := e.NetworkAddr(prefixLen)
	e.Addr = [4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	e.Prefix = prefixLen
	return e
}

// MarshalXML renders the endpoint as its canonical ADDR[/PREFIX][:PORT]
// string rather than its internal struct fields, so HSPL subject/object
// elements read as the wire form an enforcement node would expect.
func (e Endpoint) MarshalXML(enc *xml.Encoder, start xml.StartElement) error {
	return enc.EncodeElement(e.String(), start)
}

// UnmarshalXML parses the endpoint's element character data back through
// ParseEndpoint, the inverse of MarshalXML.
func (e *Endpoint) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := dec.DecodeElement(&s, &start); err != nil {
		return err
	}
	parsed, err := ParseEndpoint(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
