// Package conversion implements the conversion record lifecycle and its
// persistence.
package conversion

import (
	"encoding/json"
	"time"
)

// Status is the conversion lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Conversion is one submitted clinical payload and its processing state. The
// error message of a failed conversion retains the engine's error text
// verbatim for audit.
type Conversion struct {
	ID            string          `json:"conversion_id"`
	Type          string          `json:"conversion_type"`
	SourceData    string          `json:"source_data,omitempty"`
	Status        Status          `json:"status"`
	ConvertedData json.RawMessage `json:"converted_data,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Summary is the converted-data payload persisted on completion.
type Summary struct {
	MessageType      string  `json:"message_type,omitempty"`
	DrugRecordsCount int     `json:"drug_records_count"`
	PatientsCount    int     `json:"patients_count"`
	ProcessingTime   float64 `json:"processing_time_seconds"`
}

// DrugRecord is a persisted drug fact tied to the conversion that produced
// it.
type DrugRecord struct {
	ID             int64          `json:"id"`
	ConversionID   string         `json:"conversion_id"`
	DrugName       string         `json:"drug_name"`
	Dosage         string         `json:"dosage"`
	Strength       string         `json:"strength"`
	Quantity       *int           `json:"quantity"`
	PatientID      string         `json:"patient_id"`
	PrescriptionID string         `json:"prescription_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
