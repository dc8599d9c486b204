package config

import (
	"errors"
	"fmt"

	"github.com/fleetpilot/fleetpilot/pkg/validation"
)

// Validate checks cross-field constraints. Invalid bounds are fatal at
// startup; a running agent never sees them.
func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Agent validation
	if err := validation.ValidateResourceID(c.Agent.ResourceID); err != nil {
		errs = append(errs, fmt.Errorf("agent.resource_id: %w", err))
	}
	if c.Agent.Interval <= 0 {
		errs = append(errs, errors.New("agent.interval must be positive"))
	}

	// Metric source validation
	validSources := map[string]bool{"cloudwatch": true, "http": true}
	if !validSources[c.Metrics.Type] {
		errs = append(errs, errors.New("metrics.type must be one of: cloudwatch, http"))
	}
	if c.Metrics.Type == "http" && c.Metrics.Endpoint == "" {
		errs = append(errs, errors.New("metrics.endpoint is required for the http source"))
	}
	if c.Metrics.Lookback <= 0 {
		errs = append(errs, errors.New("metrics.lookback must be positive"))
	}
	if c.Metrics.PeriodSeconds <= 0 {
		errs = append(errs, errors.New("metrics.period_seconds must be positive"))
	}
	if c.Metrics.Timeout <= 0 {
		errs = append(errs, errors.New("metrics.timeout must be positive"))
	}

	// Forecast validation
	if c.Forecast.HorizonSeconds <= 0 {
		errs = append(errs, errors.New("forecast.horizon_seconds must be positive"))
	}
	if c.Forecast.SlopeWindow < 2 {
		errs = append(errs, errors.New("forecast.slope_window must be at least 2"))
	}
	if c.Forecast.TrendEpsilon < 0 {
		errs = append(errs, errors.New("forecast.trend_epsilon must not be negative"))
	}

	// Policy validation
	if c.Policy.MinCapacity < 0 {
		errs = append(errs, errors.New("policy.min_capacity must not be negative"))
	}
	if c.Policy.MaxCapacity < c.Policy.MinCapacity {
		errs = append(errs, errors.New("policy.max_capacity must be >= min_capacity"))
	}
	if c.Policy.PerInstanceCapacity <= 0 {
		errs = append(errs, errors.New("policy.per_instance_capacity must be positive"))
	}
	if c.Policy.MinConfidence < 0 || c.Policy.MinConfidence > 1 {
		errs = append(errs, errors.New("policy.min_confidence must be between 0 and 1"))
	}
	if c.Policy.ScaleDownCooldown < 0 {
		errs = append(errs, errors.New("policy.scale_down_cooldown must not be negative"))
	}
	if c.Policy.ScaleDownLoadFactor <= 0 || c.Policy.ScaleDownLoadFactor > 1 {
		errs = append(errs, errors.New("policy.scale_down_load_factor must be in (0, 1]"))
	}

	// Health validation
	if c.Health.UnhealthyThreshold < 1 {
		errs = append(errs, errors.New("health.unhealthy_threshold must be at least 1"))
	}
	if c.Health.RemediationFraction <= 0 || c.Health.RemediationFraction > 1 {
		errs = append(errs, errors.New("health.remediation_fraction must be in (0, 1]"))
	}
	if c.Health.DrainGracePeriod < 0 {
		errs = append(errs, errors.New("health.drain_grace_period must not be negative"))
	}

	// Orchestration validation
	validOrch := map[string]bool{"ecs": true, "simulator": true}
	if !validOrch[c.Orchestration.Type] {
		errs = append(errs, errors.New("orchestration.type must be one of: ecs, simulator"))
	}
	if c.Orchestration.Type == "ecs" {
		if c.Orchestration.Cluster == "" {
			errs = append(errs, errors.New("orchestration.cluster is required for ecs"))
		}
		if c.Orchestration.Service == "" {
			errs = append(errs, errors.New("orchestration.service is required for ecs"))
		}
	}
	if c.Orchestration.Timeout <= 0 {
		errs = append(errs, errors.New("orchestration.timeout must be positive"))
	}
	if c.Orchestration.RetryAttempts < 0 {
		errs = append(errs, errors.New("orchestration.retry_attempts must not be negative"))
	}

	// State store validation
	validStores := map[string]bool{"memory": true, "redis": true}
	if !validStores[c.StateStore.Type] {
		errs = append(errs, errors.New("state_store.type must be one of: memory, redis"))
	}
	if c.StateStore.Type == "redis" && c.StateStore.RedisAddr == "" {
		errs = append(errs, errors.New("state_store.redis_addr is required for redis"))
	}

	// Database validation
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Notification validation
	if c.Notify.SlackWebhook != "" {
		if err := validation.ValidateWebhookURL(c.Notify.SlackWebhook); err != nil {
			errs = append(errs, fmt.Errorf("notify.slack_webhook: %w", err))
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
