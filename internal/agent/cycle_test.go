package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpilot/fleetpilot/internal/metricsource"
	"github.com/fleetpilot/fleetpilot/internal/orchestration"
	"github.com/fleetpilot/fleetpilot/pkg/config"
	"github.com/fleetpilot/fleetpilot/pkg/models"
	"github.com/fleetpilot/fleetpilot/pkg/statestore"
)

type fakeSource struct {
	window *models.SampleWindow
	err    error
}

func (f *fakeSource) GetRecentSamples(ctx context.Context, resourceID string, window time.Duration) (*models.SampleWindow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.window, nil
}

func (f *fakeSource) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeSource) Close() error                          { return nil }

type recordingSink struct {
	sent []*models.CycleRecord
	err  error
}

func (s *recordingSink) Send(ctx context.Context, record *models.CycleRecord) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, record)
	return nil
}

type recordingRecorder struct {
	appended []*models.CycleRecord
	err      error
}

func (r *recordingRecorder) Append(ctx context.Context, record *models.CycleRecord) error {
	if r.err != nil {
		return r.err
	}
	r.appended = append(r.appended, record)
	return nil
}

func (r *recordingRecorder) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Agent: config.AgentConfig{
			ResourceID: "web-app",
			Interval:   time.Minute,
		},
		Metrics: config.MetricsConfig{
			Lookback: 10 * time.Minute,
		},
		Forecast: config.ForecastConfig{
			HorizonSeconds: 300,
			SlopeWindow:    5,
			TrendEpsilon:   0.05,
		},
		Policy: config.PolicyConfig{
			MinCapacity:         1,
			MaxCapacity:         10,
			PerInstanceCapacity: 50.0,
			ScaleDownCooldown:   5 * time.Minute,
			MinConfidence:       0.6,
			ScaleDownLoadFactor: 0.7,
		},
		Health: config.HealthConfig{
			UnhealthyThreshold:  3,
			RemediationFraction: 0.25,
		},
		Orchestration: config.OrchestrationConfig{
			RetryAttempts: 1,
			RetryBackoff:  time.Millisecond,
		},
	}
}

func risingWindow(rates ...float64) *models.SampleWindow {
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

func newTestAgent(source metricsource.Source, sim *orchestration.Simulator) (*Agent, *recordingSink, *recordingRecorder) {
	sink := &recordingSink{}
	recorder := &recordingRecorder{}

	ag := New(Options{
		Config:   testConfig(),
		Source:   source,
		API:      sim,
		Store:    statestore.NewMemoryStore(),
		Sink:     sink,
		Recorder: recorder,
	})

	return ag, sink, recorder
}

func TestRunCycle_ScaleUpOnRisingLoad(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 2)

	source := &fakeSource{window: risingWindow(100, 150, 200, 260, 330)}
	ag, sink, recorder := newTestAgent(source, sim)

	record := ag.RunCycle(context.Background())

	require.NotNil(t, record.ScalingDecision)
	assert.Equal(t, models.ReasonForecastScaleUp, record.ScalingDecision.Reason)
	assert.Greater(t, record.ScalingDecision.TargetDesired, 2)
	assert.False(t, record.HasErrors())

	desired, err := sim.GetDesiredCount(context.Background(), "web-app")
	require.NoError(t, err)
	assert.Equal(t, record.ScalingDecision.TargetDesired, desired)

	assert.Len(t, sink.sent, 1)
	assert.Len(t, recorder.appended, 1)
	assert.Same(t, record, ag.LatestRecord())
}

func TestRunCycle_ScaleUpStartsCooldown(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 2)

	source := &fakeSource{window: risingWindow(100, 150, 200, 260, 330)}
	ag, _, _ := newTestAgent(source, sim)

	ag.RunCycle(context.Background())

	// Load drops immediately after the scale-up: the cooldown must hold
	// the fleet.
	source.window = risingWindow(50, 50, 50, 50, 50)
	record := ag.RunCycle(context.Background())

	require.NotNil(t, record.ScalingDecision)
	assert.Equal(t, models.ReasonCooldownActive, record.ScalingDecision.Reason)
	assert.False(t, record.ScalingDecision.ShouldExecute())
}

func TestRunCycle_MetricsUnavailableDegrades(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 3)

	source := &fakeSource{err: metricsource.ErrMetricsUnavailable}
	ag, sink, recorder := newTestAgent(source, sim)

	record := ag.RunCycle(context.Background())

	require.NotNil(t, record.ScalingDecision)
	assert.Equal(t, models.ReasonDegradedNoMetrics, record.ScalingDecision.Reason)
	assert.Equal(t, 3, record.ScalingDecision.TargetDesired)

	require.Len(t, record.Errors, 1)
	assert.Equal(t, models.StageFetchMetrics, record.Errors[0].Stage)

	// The cycle still reports: one notification, one telemetry append.
	assert.Len(t, sink.sent, 1)
	assert.Len(t, recorder.appended, 1)

	// No mutating call was issued.
	assert.Empty(t, sim.SetDesiredCalls())
}

func TestRunCycle_StuckInstanceReplacedAfterThreshold(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 4)

	instances, err := sim.ListInstances(context.Background(), "web-app")
	require.NoError(t, err)
	sick := instances[0].InstanceID

	source := &fakeSource{window: risingWindow(100, 100, 100, 100, 100)}
	ag, _, _ := newTestAgent(source, sim)

	sim.SetInstanceStatus("web-app", sick, "UNHEALTHY")
	sim.ReplaceHeals = true

	// Two failing checks are hysteresis only.
	for i := 0; i < 2; i++ {
		record := ag.RunCycle(context.Background())
		sim.SetInstanceStatus("web-app", sick, "UNHEALTHY")
		assert.Empty(t, record.RemediationActions)
	}

	// The third consecutive failure crosses the threshold.
	record := ag.RunCycle(context.Background())

	require.Len(t, record.RemediationActions, 1)
	assert.Equal(t, sick, record.RemediationActions[0].InstanceID)
	assert.Equal(t, models.RemediationDrain, record.RemediationActions[0].Action)

	calls := sim.ReplaceCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, orchestration.ReplaceModeDrain, calls[0].Mode)
}

func TestRunCycle_RepeatOffenderEscalatesToForce(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 4)

	instances, err := sim.ListInstances(context.Background(), "web-app")
	require.NoError(t, err)
	sick := instances[0].InstanceID

	source := &fakeSource{window: risingWindow(100, 100, 100, 100, 100)}
	ag, _, _ := newTestAgent(source, sim)

	// The replacement does not fix the instance: it keeps reporting
	// unhealthy under the same id.
	sim.ReplaceHeals = false

	var lastRecord *models.CycleRecord
	for i := 0; i < 6; i++ {
		sim.SetInstanceStatus("web-app", sick, "UNHEALTHY")
		lastRecord = ag.RunCycle(context.Background())
	}

	calls := sim.ReplaceCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, orchestration.ReplaceModeDrain, calls[0].Mode)
	assert.Equal(t, orchestration.ReplaceModeForce, calls[1].Mode)

	require.Len(t, lastRecord.RemediationActions, 1)
	assert.Equal(t, models.RemediationForce, lastRecord.RemediationActions[0].Action)
}

func TestRunCycle_OrchestrationFailureIsolated(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 2)
	sim.FailWith(orchestration.ErrUnavailable)

	source := &fakeSource{window: risingWindow(100, 100, 100, 100, 100)}
	ag, sink, recorder := newTestAgent(source, sim)

	record := ag.RunCycle(context.Background())

	// Desired-count read and fleet listing both failed; no decision and
	// no actions, but the cycle still completed and reported.
	assert.Nil(t, record.ScalingDecision)
	assert.Empty(t, record.RemediationActions)
	assert.True(t, record.HasErrors())
	assert.Len(t, sink.sent, 1)
	assert.Len(t, recorder.appended, 1)
}

func TestRunCycle_ReportingFailuresAreWarnings(t *testing.T) {
	sim := orchestration.NewSimulator()
	sim.InitializeResource("web-app", 2)

	source := &fakeSource{window: risingWindow(100, 100, 100, 100, 100)}
	ag, sink, recorder := newTestAgent(source, sim)
	sink.err = assert.AnError
	recorder.err = assert.AnError

	record := ag.RunCycle(context.Background())

	require.Len(t, record.Errors, 2)
	for _, e := range record.Errors {
		assert.Equal(t, models.SeverityWarning, e.Severity)
	}
}
