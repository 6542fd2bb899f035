// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package filters provides the filter plug-ins a recipe's <filters>
// block references by tag (§4.2 step 4). Each plug-in registers
// itself into the process-wide registry from init(), per the
// REDESIGN FLAG in §9.
package filters

import (
	"regexp"
	"strconv"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
)

// relExpr matches a relational comparison against an integer field
// value, e.g. "<100", ">=50", "!=0".
var relExpr = regexp.MustCompile(`^(==|!=|<=|>=|<|>)\s*(\d+)$`)

// evalNumericField implements a relational comparison against a named
// numeric event field, grounded on FilterInputBytes.py's "(==|!=|<|<=|
// >|>=)(\d+)" comparison.
func evalNumericField(field, value string, event eventmodel.AttackEvent) bool {
	raw, ok := event.Field(field)
	if !ok {
		return false
	}
	fieldValue, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}

	m := relExpr.FindStringSubmatch(value)
	if m == nil {
		return false
	}
	threshold, err := strconv.Atoi(m[2])
	if err != nil {
		return false
	}

	switch m[1] {
	case "==":
		return fieldValue == threshold
	case "!=":
		return fieldValue != threshold
	case "<":
		return fieldValue < threshold
	case "<=":
		return fieldValue <= threshold
	case ">":
		return fieldValue > threshold
	case ">=":
		return fieldValue >= threshold
	default:
		return false
	}
}

func init() {
	plugin.Default.RegisterFilter(plugin.FilterDescriptor{
		ID:  "input-bytes",
		Tag: "input-bytes",
		Eval: func(value string, event eventmodel.AttackEvent) bool {
			return evalNumericField("inputBytes", value, event)
		},
	})
	plugin.Default.RegisterFilter(plugin.FilterDescriptor{
		ID:  "output-bytes",
		Tag: "output-bytes",
		Eval: func(value string, event eventmodel.AttackEvent) bool {
			return evalNumericField("outputBytes", value, event)
		},
	})
	plugin.Default.RegisterFilter(plugin.FilterDescriptor{
		ID:  "protocol",
		Tag: "protocol",
		Eval: func(value string, event eventmodel.AttackEvent) bool {
			proto, ok := event.Field("protocol")
			return ok && proto == value
		},
	})
}
