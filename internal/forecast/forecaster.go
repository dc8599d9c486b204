package forecast

import (
	"math"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

type Config struct {
	// SlopeWindow is the number of most-recent samples the slope is fit
	// over.
	SlopeWindow int
	// TrendEpsilon is the slope magnitude (requests/sec per second) below
	// which the trend is reported stable.
	TrendEpsilon float64
}

// Forecaster produces a point forecast of near-term request rate from a
// short history window. It never fails: with fewer than two samples it
// returns a confidence-0 forecast with a stable trend, which the policy
// treats as degenerate input.
type Forecaster struct {
	config Config
}

func New(cfg Config) *Forecaster {
	if cfg.SlopeWindow < 2 {
		cfg.SlopeWindow = 5
	}
	if cfg.TrendEpsilon <= 0 {
		cfg.TrendEpsilon = 0.05
	}

	return &Forecaster{config: cfg}
}

func (f *Forecaster) Forecast(window *models.SampleWindow, horizonSeconds int) models.Forecast {
	if window == nil || len(window.Samples) < 2 {
		var last float64
		if window != nil {
			if s, ok := window.Latest(); ok {
				last = s.RequestRate
			}
		}
		return models.Degenerate(horizonSeconds, last)
	}

	recent := window.Tail(f.config.SlopeWindow)
	slope := fitSlope(recent)
	last := recent[len(recent)-1].RequestRate

	predicted := last + slope*float64(horizonSeconds)
	if predicted < 0 {
		predicted = 0
	}

	trend := models.TrendStable
	switch {
	case slope > f.config.TrendEpsilon:
		trend = models.TrendRising
	case slope < -f.config.TrendEpsilon:
		trend = models.TrendFalling
	}

	confidence := f.confidence(recent)

	result := models.Forecast{
		PredictedRequestRate: predicted,
		PredictedAt:          time.Now(),
		HorizonSeconds:       horizonSeconds,
		Trend:                trend,
		Confidence:           confidence,
	}

	logger.WithResource(window.ResourceID).Debugf(
		"Forecast: predicted=%.1f req/s, trend=%s, confidence=%.2f (slope=%.4f over %d samples)",
		predicted, trend, confidence, slope, len(recent),
	)

	return result
}

// fitSlope computes the least-squares slope of request rate over time, in
// requests/sec per second. Degenerate spacing (all samples at the same
// instant) yields slope 0.
func fitSlope(samples []models.MetricSample) float64 {
	n := float64(len(samples))
	base := samples[0].Timestamp

	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.Timestamp.Sub(base).Seconds()
		y := s.RequestRate
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}

	return (n*sumXY - sumX*sumY) / denom
}

// confidence scales with the number of samples available relative to the
// slope window and inversely with sample-to-sample variance: a full, calm
// window approaches 1, a short or noisy one decays toward 0.
func (f *Forecaster) confidence(samples []models.MetricSample) float64 {
	sampleFactor := float64(len(samples)) / float64(f.config.SlopeWindow)
	if sampleFactor > 1 {
		sampleFactor = 1
	}

	diffs := make([]float64, 0, len(samples)-1)
	var rateSum float64
	for i, s := range samples {
		rateSum += math.Abs(s.RequestRate)
		if i > 0 {
			diffs = append(diffs, s.RequestRate-samples[i-1].RequestRate)
		}
	}

	meanRate := rateSum / float64(len(samples))
	stability := 1.0
	if meanRate > 0 {
		stability = 1 / (1 + stddev(diffs)/meanRate)
	}

	return sampleFactor * stability
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}

	return math.Sqrt(sq / float64(len(values)))
}
