package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
// Tracks artifact throughput, case transitions, and OCR latency.
type Metrics struct {
	ArtifactsProcessed *prometheus.CounterVec
	CasesCreated       prometheus.Counter
	CasesCompleted     prometheus.Counter
	CasesRejected      prometheus.Counter
	DuplicateDropped   prometheus.Counter
	ExtractionDuration prometheus.Histogram
}

// New creates a Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		ArtifactsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_artifacts_processed_total",
			Help: "Total artifacts processed, by validation outcome",
		}, []string{"outcome"}),
		CasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veridoc_cases_created_total",
			Help: "Total verification cases created",
		}),
		CasesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veridoc_cases_completed_total",
			Help: "Total cases reaching COMPLETED",
		}),
		CasesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veridoc_cases_rejected_total",
			Help: "Total cases reaching REJECTED",
		}),
		DuplicateDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veridoc_duplicate_deliveries_dropped_total",
			Help: "Redelivered events dropped by the dedup check",
		}),
		ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veridoc_extraction_duration_seconds",
			Help:    "Duration of OCR extraction calls including fallback",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveArtifact records one processed artifact with its outcome label.
func (m *Metrics) ObserveArtifact(valid bool) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.ArtifactsProcessed.WithLabelValues(outcome).Inc()
}

// ObserveExtraction records the duration of an extraction call.
// Call with time.Now() captured at the start of the call.
func (m *Metrics) ObserveExtraction(start time.Time) {
	m.ExtractionDuration.Observe(time.Since(start).Seconds())
}
