// Package engine orchestrates clinical data conversions: validate, parse,
// extract, persist, status update.
package engine

import (
	"errors"
	"fmt"
)

// Conversion source formats. The caller tags each conversion explicitly; the
// engine never sniffs the payload.
const (
	FormatHL7 = "HL7"
	FormatXML = "XML"
)

// ValidationError reports input that fails the format-specific structural
// check (missing MSH segment, malformed XML). Non-retryable.
type ValidationError struct {
	Format string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s data: %s", e.Format, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(format, reason string) *ValidationError {
	return &ValidationError{Format: format, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseError reports input that passed validation but hit an unrecoverable
// structural inconsistency during decomposition. Never silently swallowed;
// the orchestrator surfaces it verbatim on the failed conversion.
type ParseError struct {
	Format string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s parsing error: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s parsing error: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError builds a ParseError without an underlying cause.
func NewParseError(format, reason string) *ParseError {
	return &ParseError{Format: format, Reason: reason}
}

// WrapParseError builds a ParseError around an underlying cause.
func WrapParseError(format, reason string, err error) *ParseError {
	return &ParseError{Format: format, Reason: reason, Err: err}
}
