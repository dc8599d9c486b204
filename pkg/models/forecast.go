package models

import "time"

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Forecast is a point prediction of near-term demand, derived purely from
// a window of samples. Confidence 0 marks a degenerate forecast produced
// from insufficient history; it is valid policy input, not a failure.
type Forecast struct {
	PredictedRequestRate float64   `json:"predicted_request_rate"`
	PredictedAt          time.Time `json:"predicted_at"`
	HorizonSeconds       int       `json:"horizon_seconds"`
	Trend                Trend     `json:"trend"`
	Confidence           float64   `json:"confidence"`
}

func (f *Forecast) IsHighConfidence(threshold float64) bool {
	return f.Confidence >= threshold
}

// Degenerate returns the confidence-0 forecast used when history is too
// short to estimate a slope.
func Degenerate(horizonSeconds int, last float64) Forecast {
	return Forecast{
		PredictedRequestRate: last,
		PredictedAt:          time.Now(),
		HorizonSeconds:       horizonSeconds,
		Trend:                TrendStable,
		Confidence:           0,
	}
}
