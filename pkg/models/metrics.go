package models

import "time"

// MetricSample is a single observation of service load, immutable once
// recorded. Samples are kept in an ordered sequence, most-recent-last.
type MetricSample struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestRate    float64   `json:"request_rate"`
	CPUUtilization float64   `json:"cpu_utilization"`
	DesiredCount   int       `json:"desired_count"`
	RunningCount   int       `json:"running_count"`
	HealthyCount   int       `json:"healthy_count"`
}

// SampleWindow is an ordered sequence of samples for one resource.
type SampleWindow struct {
	ResourceID string         `json:"resource_id"`
	Samples    []MetricSample `json:"samples"`
}

// Latest returns the most recent sample and false when the window is empty.
func (w *SampleWindow) Latest() (MetricSample, bool) {
	if len(w.Samples) == 0 {
		return MetricSample{}, false
	}
	return w.Samples[len(w.Samples)-1], true
}

// RequestRates returns the request-rate series in sample order.
func (w *SampleWindow) RequestRates() []float64 {
	rates := make([]float64, len(w.Samples))
	for i, s := range w.Samples {
		rates[i] = s.RequestRate
	}
	return rates
}

// Tail returns at most the last n samples.
func (w *SampleWindow) Tail(n int) []MetricSample {
	if n <= 0 || len(w.Samples) <= n {
		return w.Samples
	}
	return w.Samples[len(w.Samples)-n:]
}
