// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors provides the structured error taxonomy used across the
// refinement pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of error. Only KindConfig is process-fatal;
// schema and enforcement errors are scoped to the attack being processed,
// and IO errors are local to a single parse.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	KindValidation

	// KindConfig is a missing section/option or unparsable config value.
	KindConfig
	// KindIO is a missing/unreadable file, empty file, or invalid CSV line.
	KindIO
	// KindInvalidPolicyXML means a generated HSPL/MSPL failed its schema.
	KindInvalidPolicyXML
	// KindNoRecipe means recipe selection returned none.
	KindNoRecipe
	// KindNoEnforcer means no (plugin, node) pair could enforce an HSPL set.
	KindNoEnforcer
	// KindTransport means a broker publish failed after max attempts.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	case KindInvalidPolicyXML:
		return "invalid_policy_xml"
	case KindNoRecipe:
		return "no_recipe"
	case KindNoEnforcer:
		return "no_enforcer"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error represents a structured error in the refinement engine.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{
		Kind:    kind,
		Message: msg,
	}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:       kind,
		Message:    msg,
		Underlying: err,
	}
}

// Wrapf wraps an existing error as a new Error of the specified kind with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Underlying: err,
	}
}

// Attr attaches an attribute to an error. If the error is not an *Error, it wraps it as KindInternal.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{
			Kind:       KindInternal,
			Message:    err.Error(),
			Underlying: err,
		}
	}

	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// GetKind returns the Kind of the error, or KindUnknown if it isn't ours.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetAttributes returns all attributes associated with the error and its chain.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	var e *Error

	tempErr := err
	for tempErr != nil {
		if errors.As(tempErr, &e) {
			for k, v := range e.Attributes {
				if _, ok := attrs[k]; !ok {
					attrs[k] = v
				}
			}
			tempErr = e.Underlying
		} else {
			break
		}
	}

	return attrs
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if err's type contains an Unwrap method returning error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Fatal reports whether an error of this kind aborts the process, rather
// than just the attack being processed. Per the propagation policy, only
// configuration errors are process-fatal.
func (k Kind) Fatal() bool {
	return k == KindConfig
}
