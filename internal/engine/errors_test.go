package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError(FormatHL7, "invalid data format")
	if got := err.Error(); got != "invalid HL7 data: invalid data format" {
		t.Errorf("got %q", got)
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should match")
	}
	if IsValidationError(errors.New("other")) {
		t.Error("IsValidationError should not match plain errors")
	}
	if !IsValidationError(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsValidationError should see through wrapping")
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := NewParseError(FormatHL7, "no segments found in message")
	if got := err.Error(); got != "HL7 parsing error: no segments found in message" {
		t.Errorf("got %q", got)
	}

	cause := errors.New("boom")
	wrapped := WrapParseError(FormatXML, "decode failed", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("ParseError should unwrap to its cause")
	}
}
