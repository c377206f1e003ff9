package engine

import "github.com/medbridge/go-clinconv/internal/clinical"

// Document is a parsed, format-specific intermediate representation that
// knows how to extract its clinical facts. Extraction never fails: ambiguous
// inputs are resolved by fixed policy, not by error.
type Document interface {
	Extract() clinical.ExtractionResult
}

// Parser is the contract both format engines implement. Validate is a cheap
// structural check; Parse performs it again and fails with a ValidationError
// for input Validate would reject, or a ParseError for structural
// inconsistencies found during decomposition.
type Parser interface {
	Format() string
	Validate(data string) bool
	Parse(data string) (Document, error)
}
