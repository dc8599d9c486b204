package agent

import (
	"context"
	"sync"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/apply"
	"github.com/fleetpilot/fleetpilot/internal/forecast"
	"github.com/fleetpilot/fleetpilot/internal/health"
	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/internal/metricsource"
	"github.com/fleetpilot/fleetpilot/internal/notify"
	"github.com/fleetpilot/fleetpilot/internal/orchestration"
	"github.com/fleetpilot/fleetpilot/internal/policy"
	"github.com/fleetpilot/fleetpilot/internal/remediate"
	"github.com/fleetpilot/fleetpilot/internal/telemetry"
	"github.com/fleetpilot/fleetpilot/pkg/config"
	"github.com/fleetpilot/fleetpilot/pkg/models"
	"github.com/fleetpilot/fleetpilot/pkg/statestore"
)

// Options carries the agent's dependencies. Source, API, Store, Sink and
// Recorder are injected so tests can swap in the simulator and in-memory
// implementations.
type Options struct {
	Config   *config.Config
	Source   metricsource.Source
	API      orchestration.API
	Store    statestore.Store
	Sink     notify.Sink
	Recorder telemetry.Recorder
	Metrics  *telemetry.Metrics
}

// Agent drives the periodic evaluation loop: fetch metrics, forecast,
// decide scaling, classify health, apply actions, report. Each cycle
// produces exactly one CycleRecord regardless of what failed along the way.
type Agent struct {
	config     *config.Config
	source     metricsource.Source
	api        orchestration.API
	store      statestore.Store
	sink       notify.Sink
	recorder   telemetry.Recorder
	metrics    *telemetry.Metrics
	forecaster *forecast.Forecaster
	policy     *policy.Policy
	inspector  *health.Inspector
	remediator *remediate.Remediator
	applier    *apply.Applier

	mu         sync.RWMutex
	lastRecord *models.CycleRecord
}

func New(opts Options) *Agent {
	cfg := opts.Config

	return &Agent{
		config:   cfg,
		source:   opts.Source,
		api:      opts.API,
		store:    opts.Store,
		sink:     opts.Sink,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		forecaster: forecast.New(forecast.Config{
			SlopeWindow:  cfg.Forecast.SlopeWindow,
			TrendEpsilon: cfg.Forecast.TrendEpsilon,
		}),
		policy: policy.New(policy.Config{
			MinCapacity:         cfg.Policy.MinCapacity,
			MaxCapacity:         cfg.Policy.MaxCapacity,
			PerInstanceCapacity: cfg.Policy.PerInstanceCapacity,
			ScaleDownCooldown:   cfg.Policy.ScaleDownCooldown,
			MinConfidence:       cfg.Policy.MinConfidence,
			ScaleDownLoadFactor: cfg.Policy.ScaleDownLoadFactor,
		}),
		inspector: health.New(health.Config{
			UnhealthyThreshold: cfg.Health.UnhealthyThreshold,
		}),
		remediator: remediate.New(remediate.Config{
			MaxFleetFraction: cfg.Health.RemediationFraction,
		}),
		applier: apply.New(opts.API, apply.Config{
			RetryAttempts: cfg.Orchestration.RetryAttempts,
			RetryBackoff:  cfg.Orchestration.RetryBackoff,
		}),
	}
}

// Run executes one cycle immediately, then one per configured interval
// until the context is cancelled.
func (a *Agent) Run(ctx context.Context) {
	interval := a.config.Agent.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	logger.WithResource(a.config.Agent.ResourceID).Infof(
		"Agent loop started (interval: %s)", interval,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Agent loop stopped")
			return
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

// LatestRecord returns the record of the most recently completed cycle, or
// nil when no cycle has run yet.
func (a *Agent) LatestRecord() *models.CycleRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRecord
}

func (a *Agent) setLatestRecord(record *models.CycleRecord) {
	a.mu.Lock()
	a.lastRecord = record
	a.mu.Unlock()
}
