// Package metrics provides Prometheus metrics for the conversion engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	ConversionsCreated    prometheus.Counter
	ConversionsCompleted  prometheus.Counter
	ConversionsFailed     prometheus.Counter
	ParseDuration         *prometheus.HistogramVec
	DrugRecordsExtracted  prometheus.Counter
	PatientsExtracted     prometheus.Counter
	ActiveConversions     prometheus.Gauge
	KafkaMessagesProduced prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	OutboxPending         prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		ConversionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conversions_created_total",
			Help: "Total conversions submitted",
		}),
		ConversionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conversions_completed_total",
			Help: "Total conversions completed",
		}),
		ConversionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conversions_failed_total",
			Help: "Total failed conversions",
		}),
		ParseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conversion_parse_duration_seconds",
			Help:    "Parse and extraction duration by format",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"format"}),
		DrugRecordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "drug_records_extracted_total",
			Help: "Total drug records extracted",
		}),
		PatientsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patients_extracted_total",
			Help: "Total patients extracted",
		}),
		ActiveConversions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conversions_active",
			Help: "Conversions currently in PROCESSING",
		}),
		KafkaMessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.ConversionsCreated,
		m.ConversionsCompleted,
		m.ConversionsFailed,
		m.ParseDuration,
		m.DrugRecordsExtracted,
		m.PatientsExtracted,
		m.ActiveConversions,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
