package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medbridge/go-clinconv/internal/domain/conversion"
	"github.com/medbridge/go-clinconv/internal/observability/metrics"
)

// Manager is the high-level conversion facade. Parsers are registered by
// format at wiring time; the manager never imports them.
type Manager struct {
	store     conversion.Store
	processor *Processor
	parsers   map[string]Parser
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewManager creates a manager over the given store. metrics may be nil in
// tests.
func NewManager(store conversion.Store, processor *Processor, m *metrics.Metrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		processor: processor,
		parsers:   make(map[string]Parser),
		metrics:   m,
		logger:    logger,
	}
}

// RegisterParser adds a parser for its declared format. Later registrations
// for the same format replace earlier ones.
func (m *Manager) RegisterParser(p Parser) {
	m.parsers[p.Format()] = p
}

// Formats returns the registered conversion formats.
func (m *Manager) Formats() []string {
	formats := make([]string, 0, len(m.parsers))
	for f := range m.parsers {
		formats = append(formats, f)
	}
	return formats
}

// CreateConversion records a new conversion in PENDING state and returns its
// ID. The format must have a registered parser.
func (m *Manager) CreateConversion(ctx context.Context, conversionType, sourceData string) (string, error) {
	if _, ok := m.parsers[conversionType]; !ok {
		return "", fmt.Errorf("unsupported conversion type %q", conversionType)
	}

	id := uuid.NewString()
	if _, err := m.store.CreateConversion(ctx, id, conversionType, sourceData); err != nil {
		return "", err
	}
	if m.metrics != nil {
		m.metrics.ConversionsCreated.Inc()
	}
	m.logger.Info("conversion created",
		zap.String("conversion_id", id),
		zap.String("conversion_type", conversionType))
	return id, nil
}

// ProcessConversion runs an existing conversion through the processor.
func (m *Manager) ProcessConversion(ctx context.Context, id string) (*Result, error) {
	c, err := m.store.GetConversion(ctx, id)
	if err != nil {
		return nil, err
	}
	parser, ok := m.parsers[c.Type]
	if !ok {
		return nil, fmt.Errorf("no parser registered for conversion type %q", c.Type)
	}
	return m.processor.Process(ctx, id, c.SourceData, parser)
}

// Convert creates and immediately processes a conversion. This is the
// synchronous path used by the API.
func (m *Manager) Convert(ctx context.Context, conversionType, sourceData string) (*Result, error) {
	id, err := m.CreateConversion(ctx, conversionType, sourceData)
	if err != nil {
		return nil, err
	}
	return m.ProcessConversion(ctx, id)
}

// StatusView is the conversion status projection returned to callers. The
// error message surfaces only for failed conversions.
type StatusView struct {
	ConversionID     string            `json:"conversion_id"`
	Status           conversion.Status `json:"status"`
	ConversionType   string            `json:"conversion_type"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DrugRecordsCount int               `json:"drug_records_count"`
	ErrorMessage     string            `json:"error_message,omitempty"`
}

// GetConversionStatus returns the status projection for a conversion,
// conversion.ErrNotFound when the ID is unknown.
func (m *Manager) GetConversionStatus(ctx context.Context, id string) (*StatusView, error) {
	c, err := m.store.GetConversion(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := m.store.CountDrugRecords(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		ConversionID:     c.ID,
		Status:           c.Status,
		ConversionType:   c.Type,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		DrugRecordsCount: count,
	}
	if c.Status == conversion.StatusFailed {
		view.ErrorMessage = c.ErrorMessage
	}
	return view, nil
}

// ListDrugRecords returns the drug records created by a conversion.
func (m *Manager) ListDrugRecords(ctx context.Context, id string) ([]conversion.DrugRecord, error) {
	if _, err := m.store.GetConversion(ctx, id); err != nil {
		return nil, err
	}
	return m.store.ListDrugRecords(ctx, id)
}
