package cxml

import (
	"github.com/medbridge/go-clinconv/internal/clinical"
	"github.com/medbridge/go-clinconv/internal/engine"
)

// Parser implements the engine contract for clinical XML input.
type Parser struct{}

// NewParser returns an XML parser.
func NewParser() *Parser { return &Parser{} }

// Format returns the conversion format tag.
func (p *Parser) Format() string { return engine.FormatXML }

// Validate reports whether the input is well-formed XML. No schema
// validation is applied beyond well-formedness.
func (p *Parser) Validate(data string) bool {
	_, err := Normalize(data)
	return err == nil
}

// Parse normalizes the document tree. Malformed XML surfaces as a
// ValidationError carrying the decoder diagnostic.
func (p *Parser) Parse(data string) (engine.Document, error) {
	tree, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	return &Document{Tree: tree}, nil
}

// Document wraps a normalized tree.
type Document struct {
	Tree *Node
}

// Extract produces the normalized clinical facts.
func (d *Document) Extract() clinical.ExtractionResult {
	return Extract(d.Tree)
}
