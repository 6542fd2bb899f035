// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ingest implements the two external ingestion adapters (§4.1):
// a directory-watching file adapter and a topic-stream message adapter.
// Both delegate line parsing to a parser plug-in chosen by matching the
// attack type against the plug-in's declared regex.
package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
)

// DefaultParserPattern matches any attack type; the default parser is a
// catch-all fallback behind any more specific, type-scoped parser a
// deployment registers.
var DefaultParserPattern = regexp.MustCompile(`^.*$`)

// parseDefaultLine implements the generic CSV event-body convention:
// timestamp,attacker,target[,protocol[,key=value...]]. On line 1, a row
// with fewer than 3 fields or an unparsable timestamp is reported as a
// skipped line (ok=false, nil error); any other failure is returned as
// an error on every line, and the file adapter skips a line-1 error as a
// header (§4.1).
func parseDefaultLine(lineNo int, fields []string) (eventmodel.AttackEvent, bool, error) {
	if len(fields) < 3 {
		if lineNo == 1 {
			return eventmodel.AttackEvent{}, false, nil
		}
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: line %d: expected at least 3 fields, got %d", lineNo, len(fields))
	}

	ts, err := parseTimestamp(fields[0])
	if err != nil {
		if lineNo == 1 {
			return eventmodel.AttackEvent{}, false, nil
		}
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: line %d: bad timestamp %q: %w", lineNo, fields[0], err)
	}

	attacker, err := eventmodel.ParseEndpoint(fields[1])
	if err != nil {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: line %d: bad attacker endpoint: %w", lineNo, err)
	}
	target, err := eventmodel.ParseEndpoint(fields[2])
	if err != nil {
		return eventmodel.AttackEvent{}, false, fmt.Errorf("ingest: line %d: bad target endpoint: %w", lineNo, err)
	}

	ev := eventmodel.AttackEvent{
		Timestamp: ts,
		Attacker:  attacker,
		Target:    target,
		Fields:    make(map[string]string),
	}
	if len(fields) > 3 {
		ev.Fields["protocol"] = fields[3]
		for _, kv := range fields[4:] {
			k, v, ok := strings.Cut(kv, "=")
			if ok {
				ev.Fields[k] = v
			}
		}
	}
	return ev, true, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

func init() {
	plugin.Default.RegisterParser(plugin.ParserDescriptor{
		ID:          "default-csv",
		TypePattern: DefaultParserPattern,
		Parse:       parseDefaultLine,
	})
}
