// Package clinical defines the normalized patient and drug facts produced by
// the format-specific extractors. These are pure, request-scoped values; one
// conversion produces one ExtractionResult and nothing here outlives it.
package clinical

import "strconv"

// Source format identifiers stamped into record metadata.
const (
	SourceHL7 = "HL7"
	SourceXML = "XML"
)

// Patient is a normalized patient identity. An empty PatientID means the
// patient could not be resolved and the record must not be emitted.
type Patient struct {
	PatientID   string         `json:"patient_id"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	FullName    string         `json:"full_name"`
	DateOfBirth string         `json:"date_of_birth"` // ISO date or empty
	Age         *int           `json:"age,omitempty"`
	Gender      string         `json:"gender"`
	Address     string         `json:"address"`
	PhoneNumber string         `json:"phone_number"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// DrugRecord is a normalized drug or medication fact. Records with an empty
// DrugName are discarded before emission.
type DrugRecord struct {
	DrugName       string         `json:"drug_name"`
	Dosage         string         `json:"dosage"`
	Strength       string         `json:"strength"`
	Quantity       *int           `json:"quantity"`
	PatientID      string         `json:"patient_id"`
	PrescriptionID string         `json:"prescription_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ExtractionResult is the engine's sole output artifact, consumed identically
// regardless of source format.
type ExtractionResult struct {
	Patients    []Patient    `json:"patients"`
	DrugRecords []DrugRecord `json:"drug_records"`
}

// ParseQuantity converts a free-text quantity to an integer. Unparseable or
// empty input yields nil, never an error; malformed quantities are an
// expected property of clinical feeds.
func ParseQuantity(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// SplitName splits a display name on the first space into first/last parts.
// A single-token name yields empty parts; the caller keeps the full name.
func SplitName(full string) (first, last string) {
	for i, r := range full {
		if r == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return "", ""
}
