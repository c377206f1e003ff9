package hl7

import (
	"testing"

	"github.com/medbridge/go-clinconv/internal/engine"
)

func TestParserValidate(t *testing.T) {
	p := NewParser()
	if !p.Validate(sampleORM) {
		t.Error("sample message should validate")
	}
	if p.Validate("Invalid HL7 data") {
		t.Error("free text should not validate")
	}
	if p.Validate("") {
		t.Error("blank input should not validate")
	}
	if p.Validate("PID|||PAT001||DOE^JOHN") {
		t.Error("message without MSH should not validate")
	}
}

func TestParserParse(t *testing.T) {
	p := NewParser()

	doc, err := p.Parse(sampleORM)
	if err != nil {
		t.Fatal(err)
	}
	hdoc, ok := doc.(*Document)
	if !ok {
		t.Fatalf("unexpected document type %T", doc)
	}
	if hdoc.MessageType() != "ORM" {
		t.Errorf("message type: got %q", hdoc.MessageType())
	}

	_, err = p.Parse("not an hl7 message")
	if err == nil {
		t.Fatal("expected error for non-HL7 input")
	}
	if !engine.IsValidationError(err) {
		t.Errorf("expected a validation error, got %T: %v", err, err)
	}
}
