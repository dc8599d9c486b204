package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// Metrics holds the Prometheus instruments for the agent loop.
type Metrics struct {
	CycleSeconds      prometheus.Histogram
	CyclesTotal       prometheus.Counter
	DecisionsTotal    *prometheus.CounterVec
	RemediationsTotal *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	DesiredCount      prometheus.Gauge
	PredictedRate     prometheus.Gauge
	ForecastConfidence prometheus.Gauge
	StuckInstances    prometheus.Gauge
}

// NewMetrics creates and registers all instruments on the default registry.
func NewMetrics(resourceID string) *Metrics {
	labels := prometheus.Labels{"resource": resourceID}

	return &Metrics{
		CycleSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "fleetpilot_cycle_seconds",
			Help:        "Duration of one full evaluation cycle",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "fleetpilot_cycles_total",
			Help:        "Total number of evaluation cycles run",
			ConstLabels: labels,
		}),

		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetpilot_decisions_total",
			Help:        "Scaling decisions by reason",
			ConstLabels: labels,
		}, []string{"reason"}),

		RemediationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetpilot_remediations_total",
			Help:        "Instance replacements by mode",
			ConstLabels: labels,
		}, []string{"mode"}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetpilot_errors_total",
			Help:        "Stage failures by stage and severity",
			ConstLabels: labels,
		}, []string{"stage", "severity"}),

		DesiredCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "fleetpilot_desired_count",
			Help:        "Desired instance count after the latest cycle",
			ConstLabels: labels,
		}),

		PredictedRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "fleetpilot_predicted_request_rate",
			Help:        "Predicted request rate from the latest forecast",
			ConstLabels: labels,
		}),

		ForecastConfidence: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "fleetpilot_forecast_confidence",
			Help:        "Confidence of the latest forecast",
			ConstLabels: labels,
		}),

		StuckInstances: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "fleetpilot_stuck_instances",
			Help:        "Instances classified stuck in the latest cycle",
			ConstLabels: labels,
		}),
	}
}

// ObserveCycle records the aggregate facts of one finished cycle.
func (m *Metrics) ObserveCycle(record *models.CycleRecord, seconds float64) {
	m.CyclesTotal.Inc()
	m.CycleSeconds.Observe(seconds)

	if d := record.ScalingDecision; d != nil {
		m.DecisionsTotal.WithLabelValues(d.Reason).Inc()
		m.DesiredCount.Set(float64(d.TargetDesired))
	}

	for _, a := range record.RemediationActions {
		m.RemediationsTotal.WithLabelValues(string(a.Action)).Inc()
	}

	for _, e := range record.Errors {
		m.ErrorsTotal.WithLabelValues(e.Stage, string(e.Severity)).Inc()
	}
}

// ObserveForecast records the latest forecast outputs.
func (m *Metrics) ObserveForecast(fc *models.Forecast) {
	m.PredictedRate.Set(fc.PredictedRequestRate)
	m.ForecastConfidence.Set(fc.Confidence)
}

// SetStuckInstances records the stuck count from the latest health pass.
func (m *Metrics) SetStuckInstances(n int) {
	m.StuckInstances.Set(float64(n))
}
