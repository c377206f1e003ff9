package hl7

import (
	"strings"

	"github.com/medbridge/go-clinconv/internal/clinical"
	"github.com/medbridge/go-clinconv/internal/engine"
)

// Parser implements the engine contract for HL7 v2.x input.
type Parser struct{}

// NewParser returns an HL7 parser.
func NewParser() *Parser { return &Parser{} }

// Format returns the conversion format tag.
func (p *Parser) Format() string { return engine.FormatHL7 }

// Validate reports whether the input tokenizes into segments whose first
// segment starts with MSH. Blank input is invalid.
func (p *Parser) Validate(data string) bool {
	segments := SplitSegments(data)
	return len(segments) > 0 && strings.HasPrefix(segments[0], "MSH")
}

// Parse tokenizes and builds the message model. The raw segment list rides
// along on the document for the embedded-PID extraction fallback.
func (p *Parser) Parse(data string) (engine.Document, error) {
	segments := SplitSegments(data)
	if len(segments) == 0 || !strings.HasPrefix(segments[0], "MSH") {
		return nil, engine.NewValidationError(engine.FormatHL7, "expected message to begin with MSH segment")
	}
	msg, err := BuildMessage(segments)
	if err != nil {
		return nil, err
	}
	return &Document{Message: msg, RawSegments: segments}, nil
}

// Document pairs the message model with the tokenizer output it was built
// from.
type Document struct {
	Message     *Message
	RawSegments []string
}

// Extract produces the normalized clinical facts.
func (d *Document) Extract() clinical.ExtractionResult {
	return Extract(d.Message, d.RawSegments)
}

// MessageType returns the message type code from MSH, for example "VXU".
func (d *Document) MessageType() string {
	return d.Message.Type.MessageType
}
