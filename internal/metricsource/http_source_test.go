package metricsource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_GetRecentSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/web-app", r.URL.Path)
		assert.Equal(t, "600", r.URL.Query().Get("window"))

		fmt.Fprint(w, `{
			"samples": [
				{"timestamp": "2026-08-30T10:00:00Z", "request_rate": 100.5, "cpu_utilization": 40.0, "desired_count": 2},
				{"timestamp": 1788516060, "request_rate": 120.0, "cpu_utilization": 45.5}
			]
		}`)
	}))
	defer server.Close()

	s := NewHTTPSource(HTTPSourceConfig{Endpoint: server.URL})

	window, err := s.GetRecentSamples(context.Background(), "web-app", 10*time.Minute)

	require.NoError(t, err)
	require.Len(t, window.Samples, 2)
	assert.Equal(t, 100.5, window.Samples[0].RequestRate)
	assert.Equal(t, 2, window.Samples[0].DesiredCount)
	assert.Equal(t, 45.5, window.Samples[1].CPUUtilization)
	assert.False(t, window.Samples[1].Timestamp.IsZero())
}

func TestHTTPSource_CustomPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": {
				"points": [
					{"at": "2026-08-30T10:00:00Z", "rps": 80.0, "cpu_pct": 33.0}
				]
			}
		}`)
	}))
	defer server.Close()

	s := NewHTTPSource(HTTPSourceConfig{
		Endpoint:      server.URL,
		SamplesPath:   "data.points",
		TimestampPath: "at",
		RatePath:      "rps",
		CPUPath:       "cpu_pct",
	})

	window, err := s.GetRecentSamples(context.Background(), "web-app", time.Minute)

	require.NoError(t, err)
	require.Len(t, window.Samples, 1)
	assert.Equal(t, 80.0, window.Samples[0].RequestRate)
	assert.Equal(t, 33.0, window.Samples[0].CPUUtilization)
}

func TestHTTPSource_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		expectedErr error
	}{
		{
			name: "server error is unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedErr: ErrMetricsUnavailable,
		},
		{
			name: "non-JSON body is invalid response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>oops</html>")
			},
			expectedErr: ErrInvalidResponse,
		},
		{
			name: "missing samples array is invalid response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"other": 1}`)
			},
			expectedErr: ErrInvalidResponse,
		},
		{
			name: "bad timestamp is invalid response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"samples": [{"timestamp": "yesterday", "request_rate": 1}]}`)
			},
			expectedErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			s := NewHTTPSource(HTTPSourceConfig{Endpoint: server.URL})

			_, err := s.GetRecentSamples(context.Background(), "web-app", time.Minute)

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestResilientSource_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"samples": [{"timestamp": 1788516000, "request_rate": 50}]}`)
	}))
	defer server.Close()

	s := NewResilientSource(ResilientSourceConfig{
		Source:        NewHTTPSource(HTTPSourceConfig{Endpoint: server.URL}),
		MaxFailures:   5,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	window, err := s.GetRecentSamples(context.Background(), "web-app", time.Minute)

	require.NoError(t, err)
	assert.Len(t, window.Samples, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestResilientSource_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewResilientSource(ResilientSourceConfig{
		Source:        NewHTTPSource(HTTPSourceConfig{Endpoint: server.URL}),
		MaxFailures:   2,
		Timeout:       time.Hour,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_, err := s.GetRecentSamples(context.Background(), "web-app", time.Minute)
		assert.ErrorIs(t, err, ErrMetricsUnavailable)
	}

	// Circuit is now open: the call fails fast without touching the
	// backend.
	_, err := s.GetRecentSamples(context.Background(), "web-app", time.Minute)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMetricsUnavailable)
}
