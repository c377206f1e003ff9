// Package handlers provides HTTP handlers for the conversion API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medbridge/go-clinconv/internal/api/middleware"
	"github.com/medbridge/go-clinconv/internal/domain/conversion"
	"github.com/medbridge/go-clinconv/internal/engine"
)

// ConversionHandler handles conversion endpoints
type ConversionHandler struct {
	manager *engine.Manager
	logger  *zap.Logger
}

// NewConversionHandler creates a new handler
func NewConversionHandler(manager *engine.Manager, logger *zap.Logger) *ConversionHandler {
	return &ConversionHandler{
		manager: manager,
		logger:  logger,
	}
}

// Routes returns the handler routes
func (h *ConversionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/records", h.GetRecords)
	return r
}

// CreateRequest is the request body for submitting a conversion
type CreateRequest struct {
	ConversionType string `json:"conversion_type"`
	SourceData     string `json:"source_data"`
}

// Create handles POST /conversions. The conversion is processed synchronously
// and the terminal result returned in the response.
func (h *ConversionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("conversion-handler")
	ctx, span := tracer.Start(ctx, "create_conversion")
	defer span.End()

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ConversionType == "" {
		h.jsonError(w, "conversion_type is required", http.StatusBadRequest)
		return
	}
	if req.SourceData == "" {
		h.jsonError(w, "source_data is required", http.StatusBadRequest)
		return
	}

	result, err := h.manager.Convert(ctx, req.ConversionType, req.SourceData)
	if err != nil {
		h.logger.Error("conversion failed to run", zap.Error(err))
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("conversion_id", result.ConversionID),
		attribute.String("status", string(result.Status)),
	)

	h.logger.Info("conversion processed",
		zap.String("conversion_id", result.ConversionID),
		zap.String("status", string(result.Status)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// Get handles GET /conversions/{id}
func (h *ConversionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	view, err := h.manager.GetConversionStatus(ctx, id)
	if err != nil {
		if errors.Is(err, conversion.ErrNotFound) {
			h.jsonError(w, "conversion not found", http.StatusNotFound)
			return
		}
		h.logger.Error("status lookup failed", zap.Error(err))
		h.jsonError(w, "failed to get conversion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// GetRecords handles GET /conversions/{id}/records
func (h *ConversionHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	records, err := h.manager.ListDrugRecords(ctx, id)
	if err != nil {
		if errors.Is(err, conversion.ErrNotFound) {
			h.jsonError(w, "conversion not found", http.StatusNotFound)
			return
		}
		h.logger.Error("records lookup failed", zap.Error(err))
		h.jsonError(w, "failed to get drug records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []conversion.DrugRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *ConversionHandler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
