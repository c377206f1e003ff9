package conversion

import (
	"context"
	"errors"

	"github.com/medbridge/go-clinconv/internal/clinical"
)

// ErrNotFound indicates an unknown conversion ID.
var ErrNotFound = errors.New("conversion not found")

// Store is the persistence collaborator consumed by the orchestrator. The
// parsing core never touches it; per-conversion mutation is serialized here,
// one transaction per conversion.
type Store interface {
	// CreateConversion records a new conversion in PENDING state.
	CreateConversion(ctx context.Context, id, conversionType, sourceData string) (*Conversion, error)

	// GetConversion loads a conversion by ID, ErrNotFound when absent.
	GetConversion(ctx context.Context, id string) (*Conversion, error)

	// UpdateStatus transitions the lifecycle state, optionally attaching the
	// converted-data summary or the failure message.
	UpdateStatus(ctx context.Context, id string, status Status, converted []byte, errorMessage string) error

	// CreateDrugRecords persists an extraction result in one transaction,
	// creating or refreshing the referenced patients along the way. Returns
	// the IDs of the created drug records.
	CreateDrugRecords(ctx context.Context, conversionID string, result clinical.ExtractionResult) ([]int64, error)

	// ListDrugRecords returns the drug records created by a conversion.
	ListDrugRecords(ctx context.Context, conversionID string) ([]DrugRecord, error)

	// GetOrCreatePatient upserts a patient by patient ID and returns the row
	// ID. Patients with an empty patient ID are rejected.
	GetOrCreatePatient(ctx context.Context, p clinical.Patient) (int64, error)

	// CountDrugRecords returns the number of drug records for a conversion.
	CountDrugRecords(ctx context.Context, conversionID string) (int, error)
}
