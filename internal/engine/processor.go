package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medbridge/go-clinconv/internal/domain/conversion"
	"github.com/medbridge/go-clinconv/internal/observability/metrics"
)

// Result is the outcome of one conversion run.
type Result struct {
	ConversionID     string            `json:"conversion_id"`
	Status           conversion.Status `json:"status"`
	MessageType      string            `json:"message_type,omitempty"`
	DrugRecordsCount int               `json:"drug_records_count"`
	PatientsCount    int               `json:"patients_count"`
	ProcessingTime   float64           `json:"processing_time_seconds"`
	ErrorMessage     string            `json:"error,omitempty"`
}

// Processor runs a single conversion through its lifecycle: PROCESSING,
// validate, parse, extract, persist, then COMPLETED or FAILED. A failed run
// stores the engine's error text verbatim so the status endpoint can replay
// it for audit.
type Processor struct {
	store   conversion.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewProcessor creates a processor. metrics may be nil in tests.
func NewProcessor(store conversion.Store, m *metrics.Metrics, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:   store,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("conversion-processor"),
	}
}

// Process runs the conversion identified by conversionID over sourceData
// using the given parser. The returned Result always describes the terminal
// state; a non-nil error means the state could not be recorded.
func (p *Processor) Process(ctx context.Context, conversionID, sourceData string, parser Parser) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "process_conversion",
		trace.WithAttributes(
			attribute.String("conversion_id", conversionID),
			attribute.String("format", parser.Format()),
		))
	defer span.End()

	start := time.Now()
	p.logger.Info("conversion started",
		zap.String("conversion_id", conversionID),
		zap.String("format", parser.Format()))

	if p.metrics != nil {
		p.metrics.ActiveConversions.Inc()
		defer p.metrics.ActiveConversions.Dec()
	}

	if err := p.store.UpdateStatus(ctx, conversionID, conversion.StatusProcessing, nil, ""); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	result, err := p.run(ctx, conversionID, sourceData, parser)
	duration := time.Since(start).Seconds()
	if p.metrics != nil {
		p.metrics.ParseDuration.WithLabelValues(parser.Format()).Observe(duration)
	}

	if err != nil {
		span.RecordError(err)
		if p.metrics != nil {
			p.metrics.ConversionsFailed.Inc()
		}
		if updateErr := p.store.UpdateStatus(ctx, conversionID, conversion.StatusFailed, nil, err.Error()); updateErr != nil {
			return nil, fmt.Errorf("mark failed: %w", updateErr)
		}
		p.logger.Error("conversion failed",
			zap.String("conversion_id", conversionID),
			zap.Float64("duration_seconds", duration),
			zap.Error(err))
		return &Result{
			ConversionID:   conversionID,
			Status:         conversion.StatusFailed,
			ProcessingTime: duration,
			ErrorMessage:   err.Error(),
		}, nil
	}

	result.ConversionID = conversionID
	result.ProcessingTime = duration

	summary, marshalErr := json.Marshal(conversion.Summary{
		MessageType:      result.MessageType,
		DrugRecordsCount: result.DrugRecordsCount,
		PatientsCount:    result.PatientsCount,
		ProcessingTime:   duration,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal summary: %w", marshalErr)
	}
	if err := p.store.UpdateStatus(ctx, conversionID, conversion.StatusCompleted, summary, ""); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ConversionsCompleted.Inc()
		p.metrics.DrugRecordsExtracted.Add(float64(result.DrugRecordsCount))
		p.metrics.PatientsExtracted.Add(float64(result.PatientsCount))
	}
	p.logger.Info("conversion completed",
		zap.String("conversion_id", conversionID),
		zap.Int("drug_records", result.DrugRecordsCount),
		zap.Int("patients", result.PatientsCount),
		zap.Float64("duration_seconds", duration))

	return result, nil
}

// run performs the validate, parse, extract, persist pipeline. Any returned
// error fails the conversion with that exact message.
func (p *Processor) run(ctx context.Context, conversionID, sourceData string, parser Parser) (*Result, error) {
	if !parser.Validate(sourceData) {
		return nil, NewValidationError(parser.Format(), "invalid data format")
	}

	doc, err := parser.Parse(sourceData)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsing completed",
		zap.String("conversion_id", conversionID),
		zap.Int("data_size", len(sourceData)))

	extraction := doc.Extract()
	p.logger.Debug("extraction completed",
		zap.String("conversion_id", conversionID),
		zap.Int("drug_records", len(extraction.DrugRecords)),
		zap.Int("patients", len(extraction.Patients)))

	ids, err := p.store.CreateDrugRecords(ctx, conversionID, extraction)
	if err != nil {
		return nil, fmt.Errorf("persist extraction: %w", err)
	}

	result := &Result{
		Status:           conversion.StatusCompleted,
		DrugRecordsCount: len(ids),
		PatientsCount:    len(extraction.Patients),
	}
	if typed, ok := doc.(interface{ MessageType() string }); ok {
		result.MessageType = typed.MessageType()
	}
	return result, nil
}
