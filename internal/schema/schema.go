// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package schema provides structural validation helpers shared by the
// landscape, recipe, HSPL and MSPL XML types. No XSD interpreter exists
// anywhere in the retrieved example pack, so validation is hand-written
// required-field/enum checking over encoding/xml-decoded Go structs
// rather than schema-file interpretation (see DESIGN.md).
package schema

import (
	"fmt"
	"strings"

	"mitigated.example.com/engine/internal/errors"
)

// Errors accumulates structural violations found while validating one
// document.
type Errors struct {
	Violations []string
}

// Add records a violation.
func (e *Errors) Add(format string, args ...any) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

// RequireNonEmpty records a violation if value is blank.
func (e *Errors) RequireNonEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add("%s: must not be empty", field)
	}
}

// RequireEnum records a violation if value is not one of allowed.
func (e *Errors) RequireEnum(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	e.Add("%s: %q is not one of %v", field, value, allowed)
}

// RequireRange records a violation if value falls outside [min,max].
func (e *Errors) RequireRange(field string, value, min, max int) {
	if value < min || value > max {
		e.Add("%s: %d is not in range [%d,%d]", field, value, min, max)
	}
}

// HasErrors reports whether any violation was recorded.
func (e *Errors) HasErrors() bool {
	return len(e.Violations) > 0
}

// Err returns nil if there are no violations, or a fatal InvalidPolicyXml
// error summarizing them (§7: "generated HSPL/MSPL fails its schema ->
// fatal for that attack").
func (e *Errors) Err(document string) error {
	if !e.HasErrors() {
		return nil
	}
	return errors.Errorf(errors.KindInvalidPolicyXML, "%s failed schema validation: %s", document, strings.Join(e.Violations, "; "))
}
