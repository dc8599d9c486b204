package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

func windowOf(rates ...float64) *models.SampleWindow {
	base := time.Now().Add(-time.Duration(len(rates)) * time.Minute)
	w := &models.SampleWindow{ResourceID: "web-app"}
	for i, rate := range rates {
		w.Samples = append(w.Samples, models.MetricSample{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			RequestRate: rate,
		})
	}
	return w
}

func TestForecaster_InsufficientHistory(t *testing.T) {
	f := New(Config{SlopeWindow: 5})

	tests := []struct {
		name          string
		window        *models.SampleWindow
		expectedValue float64
	}{
		{"nil window", nil, 0},
		{"empty window", windowOf(), 0},
		{"single sample", windowOf(120), 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := f.Forecast(tt.window, 300)

			assert.Equal(t, 0.0, fc.Confidence)
			assert.Equal(t, models.TrendStable, fc.Trend)
			assert.Equal(t, tt.expectedValue, fc.PredictedRequestRate)
		})
	}
}

func TestForecaster_SteadyLoad(t *testing.T) {
	f := New(Config{SlopeWindow: 5, TrendEpsilon: 0.05})

	fc := f.Forecast(windowOf(100, 100, 100, 100, 100), 300)

	assert.Equal(t, models.TrendStable, fc.Trend)
	assert.InDelta(t, 100, fc.PredictedRequestRate, 0.001)
	assert.InDelta(t, 1.0, fc.Confidence, 0.001)
}

func TestForecaster_RisingLoad(t *testing.T) {
	f := New(Config{SlopeWindow: 5, TrendEpsilon: 0.05})

	fc := f.Forecast(windowOf(100, 150, 200, 260, 330), 300)

	assert.Equal(t, models.TrendRising, fc.Trend)
	assert.Greater(t, fc.PredictedRequestRate, 330.0)
	// Least-squares slope over 60s spacing is ~0.528 req/s per second.
	assert.InDelta(t, 488.3, fc.PredictedRequestRate, 1.0)
	assert.Greater(t, fc.Confidence, 0.9)
}

func TestForecaster_FallingLoad(t *testing.T) {
	f := New(Config{SlopeWindow: 5, TrendEpsilon: 0.05})

	fc := f.Forecast(windowOf(300, 250, 200, 150, 100), 60)

	assert.Equal(t, models.TrendFalling, fc.Trend)
	assert.Less(t, fc.PredictedRequestRate, 100.0)
}

func TestForecaster_PredictionFlooredAtZero(t *testing.T) {
	f := New(Config{SlopeWindow: 5})

	fc := f.Forecast(windowOf(500, 400, 300, 200, 100), 300)

	assert.Equal(t, 0.0, fc.PredictedRequestRate)
}

func TestForecaster_SlopeWindowLimitsHistory(t *testing.T) {
	f := New(Config{SlopeWindow: 3, TrendEpsilon: 0.05})

	// Old falling history must not matter; the last 3 samples rise.
	fc := f.Forecast(windowOf(500, 400, 300, 100, 150, 200), 60)

	assert.Equal(t, models.TrendRising, fc.Trend)
}

func TestForecaster_NoisyWindowLowersConfidence(t *testing.T) {
	f := New(Config{SlopeWindow: 5})

	calm := f.Forecast(windowOf(100, 102, 104, 106, 108), 300)
	noisy := f.Forecast(windowOf(100, 300, 50, 400, 20), 300)

	assert.Greater(t, calm.Confidence, noisy.Confidence)
}

func TestFitSlope_DegenerateSpacing(t *testing.T) {
	now := time.Now()
	samples := []models.MetricSample{
		{Timestamp: now, RequestRate: 100},
		{Timestamp: now, RequestRate: 200},
	}

	assert.Equal(t, 0.0, fitSlope(samples))
}
