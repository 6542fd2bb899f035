// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"fmt"
	"regexp"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
)

// dosTypePattern matches the "DoS" attack type, case-insensitively.
var dosTypePattern = regexp.MustCompile(`(?i)^dos$`)

// dosHeader is the 18-column header line a DoS CSV export carries.
var dosHeader = []string{
	"timereceived", "Year", "M", "D", "h", "m", "s", "dur",
	"src_ip", "dst_ip", "s_prt", "d_prt", "proto",
	"in_pkt", "in_bytes", "out_pkts", "out_bytes", "score",
}

// parseDoSLine implements the DoS export's 18-column convention: two
// date/time columns, a duration, source/destination address+port,
// protocol, and packet/byte counters. Grounded on
// cybertop/plugins/ParserDoS.py's column layout.
func parseDoSLine(lineNo int, fields []string) (eventmodel.AttackEvent, bool, error) {
	if lineNo == 1 && isDoSHeader(fields) {
		return eventmodel.AttackEvent{}, false, nil
	}
	if len(fields) != len(dosHeader) {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: DoS line %d: expected %d fields, got %d", lineNo, len(dosHeader), len(fields))
	}

	// fields[0] ("timereceived") carries the full timestamp; the
	// decomposed Year/M/D/h/m/s columns that follow are redundant and
	// not otherwise consulted.
	ts, err := parseTimestamp(fields[0])
	if err != nil {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: DoS line %d: bad timestamp: %w", lineNo, err)
	}

	if fields[8] == "" || fields[9] == "" {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: DoS line %d: empty source or destination address", lineNo)
	}
	attacker, err := eventmodel.ParseEndpoint(fmt.Sprintf("%s:%s", fields[8], fields[10]))
	if err != nil {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: DoS line %d: bad source endpoint: %w", lineNo, err)
	}
	target, err := eventmodel.ParseEndpoint(fmt.Sprintf("%s:%s", fields[9], fields[11]))
	if err != nil {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: DoS line %d: bad destination endpoint: %w", lineNo, err)
	}

	ev := eventmodel.AttackEvent{
		Timestamp: ts,
		Attacker:  attacker,
		Target:    target,
		Fields: map[string]string{
			"protocol":     fields[12],
			"inputPackets": fields[13],
			"inputBytes":   fields[14],
			"outputPackets": fields[15],
			"outputBytes":  fields[16],
			"score":        fields[17],
		},
	}
	return ev, true, nil
}

func isDoSHeader(fields []string) bool {
	if len(fields) != len(dosHeader) {
		return false
	}
	for i, h := range dosHeader {
		if fields[i] != h {
			return false
		}
	}
	return true
}

func init() {
	plugin.Default.RegisterParser(plugin.ParserDescriptor{
		ID:          "dos-csv",
		TypePattern: dosTypePattern,
		Parse:       parseDoSLine,
	})
}
