package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions     prometheus.Gauge
	TurnsTotal         *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	SafetyTriggers     *prometheus.CounterVec
	ScamDetections     prometheus.Counter
	EntitiesExtracted  *prometheus.CounterVec
	CollaboratorErrors *prometheus.CounterVec
	CallbacksTotal     *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active engagement sessions.",
		}),
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Engagement turns by outcome.",
		}, []string{"outcome"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_ms",
			Help:      "Pipeline stage duration in milliseconds.",
			Buckets:   []float64{5, 20, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"stage"}),
		SafetyTriggers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_triggers_total",
			Help:      "Safety filter replacements by rule.",
		}, []string{"rule"}),
		ScamDetections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scam_detections_total",
			Help:      "Messages classified as scam.",
		}),
		EntitiesExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_extracted_total",
			Help:      "Extracted intelligence entities by category.",
		}, []string{"category"}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Model collaborator failures by collaborator.",
		}, []string{"collaborator"}),
		CallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Final result callbacks by status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
