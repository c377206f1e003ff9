package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/medbridge/go-clinconv/internal/clinical"
	"github.com/medbridge/go-clinconv/internal/infrastructure/postgres"
)

// Repository is the PostgreSQL Store implementation.
type Repository struct {
	pool       *pgxpool.Pool
	logger     *zap.Logger
	eventTopic string
}

// NewRepository creates a repository. eventTopic is the outbox destination
// for terminal status events.
func NewRepository(pool *pgxpool.Pool, eventTopic string, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger, eventTopic: eventTopic}
}

var _ Store = (*Repository)(nil)

// CreateConversion records a new conversion in PENDING state.
func (r *Repository) CreateConversion(ctx context.Context, id, conversionType, sourceData string) (*Conversion, error) {
	query := `
		INSERT INTO conversions (conversion_id, conversion_type, source_data, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	c := &Conversion{
		ID:         id,
		Type:       conversionType,
		SourceData: sourceData,
		Status:     StatusPending,
	}
	err := r.pool.QueryRow(ctx, query, id, conversionType, sourceData, StatusPending).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversion: %w", err)
	}
	return c, nil
}

// GetConversion loads a conversion by ID.
func (r *Repository) GetConversion(ctx context.Context, id string) (*Conversion, error) {
	query := `
		SELECT conversion_id, conversion_type, source_data, status,
		       converted_data, COALESCE(error_message, ''), created_at, updated_at
		FROM conversions
		WHERE conversion_id = $1
	`
	c := &Conversion{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Type, &c.SourceData, &c.Status,
		&c.ConvertedData, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	return c, nil
}

// UpdateStatus transitions the conversion state. Terminal transitions write
// an outbox entry in the same transaction so downstream consumers observe
// exactly the states the store does.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status, converted []byte, errorMessage string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE conversions
		SET status = $1,
		    converted_data = COALESCE($2, converted_data),
		    error_message = NULLIF($3, ''),
		    updated_at = NOW()
		WHERE conversion_id = $4
	`
	tag, err := tx.Exec(ctx, query, status, converted, errorMessage, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if status == StatusCompleted || status == StatusFailed {
		payload, err := json.Marshal(map[string]any{
			"conversion_id": id,
			"status":        status,
			"error_message": errorMessage,
			"occurred_at":   time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("marshal status event: %w", err)
		}
		entry := &postgres.OutboxEntry{
			AggregateID:   id,
			AggregateType: "Conversion",
			EventType:     "ConversionStatusChanged",
			Payload:       payload,
			Topic:         r.eventTopic,
			Key:           id,
		}
		if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateDrugRecords persists an extraction result in a single transaction.
// Patients are upserted first so drug rows can be traced back to a stored
// identity; the extractors guarantee non-empty drug names and patient IDs.
func (r *Repository) CreateDrugRecords(ctx context.Context, conversionID string, result clinical.ExtractionResult) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range result.Patients {
		if _, err := r.upsertPatient(ctx, tx, p); err != nil {
			return nil, err
		}
	}

	var ids []int64
	for _, rec := range result.DrugRecords {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal drug metadata: %w", err)
		}
		query := `
			INSERT INTO drug_records
			(conversion_id, drug_name, dosage, strength, quantity, patient_id, prescription_id, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		var id int64
		err = tx.QueryRow(ctx, query,
			conversionID, rec.DrugName, rec.Dosage, rec.Strength,
			rec.Quantity, rec.PatientID, rec.PrescriptionID, metadata,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert drug record: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.logger.Debug("drug records created",
		zap.String("conversion_id", conversionID),
		zap.Int("count", len(ids)))
	return ids, nil
}

// GetOrCreatePatient upserts a patient outside any conversion transaction.
func (r *Repository) GetOrCreatePatient(ctx context.Context, p clinical.Patient) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := r.upsertPatient(ctx, tx, p)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *Repository) upsertPatient(ctx context.Context, tx pgx.Tx, p clinical.Patient) (int64, error) {
	if p.PatientID == "" {
		return 0, errors.New("patient has empty patient_id")
	}
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal patient metadata: %w", err)
	}

	// Refresh only fields the new source actually carries; a PV1-derived
	// sentinel must not blank out identity learned from an earlier PID.
	query := `
		INSERT INTO patients
		(patient_id, first_name, last_name, full_name, date_of_birth, age, gender, address, phone_number, metadata)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
		ON CONFLICT (patient_id) DO UPDATE SET
			first_name    = COALESCE(NULLIF(EXCLUDED.first_name, ''), patients.first_name),
			last_name     = COALESCE(NULLIF(EXCLUDED.last_name, ''), patients.last_name),
			full_name     = COALESCE(NULLIF(EXCLUDED.full_name, ''), patients.full_name),
			date_of_birth = COALESCE(EXCLUDED.date_of_birth, patients.date_of_birth),
			age           = COALESCE(EXCLUDED.age, patients.age),
			gender        = COALESCE(NULLIF(EXCLUDED.gender, ''), patients.gender),
			address       = COALESCE(NULLIF(EXCLUDED.address, ''), patients.address),
			phone_number  = COALESCE(NULLIF(EXCLUDED.phone_number, ''), patients.phone_number),
			metadata      = EXCLUDED.metadata,
			updated_at    = NOW()
		RETURNING id
	`
	var id int64
	err = tx.QueryRow(ctx, query,
		p.PatientID, p.FirstName, p.LastName, p.FullName, p.DateOfBirth,
		p.Age, p.Gender, p.Address, p.PhoneNumber, metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert patient: %w", err)
	}
	return id, nil
}

// ListDrugRecords returns a conversion's drug records in creation order.
func (r *Repository) ListDrugRecords(ctx context.Context, conversionID string) ([]DrugRecord, error) {
	query := `
		SELECT id, conversion_id, drug_name, dosage, strength, quantity,
		       patient_id, prescription_id, metadata, created_at
		FROM drug_records
		WHERE conversion_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, conversionID)
	if err != nil {
		return nil, fmt.Errorf("list drug records: %w", err)
	}
	defer rows.Close()

	var records []DrugRecord
	for rows.Next() {
		var rec DrugRecord
		var metadata []byte
		err := rows.Scan(
			&rec.ID, &rec.ConversionID, &rec.DrugName, &rec.Dosage, &rec.Strength,
			&rec.Quantity, &rec.PatientID, &rec.PrescriptionID, &metadata, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan drug record: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode drug metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountDrugRecords returns the number of drug records for a conversion.
func (r *Repository) CountDrugRecords(ctx context.Context, conversionID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM drug_records WHERE conversion_id = $1", conversionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count drug records: %w", err)
	}
	return count, nil
}
