package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleetpilot")
	}

	// Environment variable settings
	v.SetEnvPrefix("FLEETPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fleetpilot")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Agent defaults
	v.SetDefault("agent.resource_id", "demo-service")
	v.SetDefault("agent.interval", "1m")

	// Metric source defaults
	v.SetDefault("metrics.type", "http")
	v.SetDefault("metrics.endpoint", "http://localhost:9000/samples")
	v.SetDefault("metrics.namespace", "AWS/ECS")
	v.SetDefault("metrics.period_seconds", 60)
	v.SetDefault("metrics.lookback", "10m")
	v.SetDefault("metrics.timeout", "5s")
	v.SetDefault("metrics.retry_attempts", 3)
	v.SetDefault("metrics.retry_delay", "1s")
	v.SetDefault("metrics.circuit_breaker.max_failures", 5)
	v.SetDefault("metrics.circuit_breaker.timeout", "30s")
	v.SetDefault("metrics.json_paths.samples", "samples")
	v.SetDefault("metrics.json_paths.timestamp", "timestamp")
	v.SetDefault("metrics.json_paths.request_rate", "request_rate")
	v.SetDefault("metrics.json_paths.cpu", "cpu_utilization")

	// Forecast defaults
	v.SetDefault("forecast.horizon_seconds", 300)
	v.SetDefault("forecast.slope_window", 5)
	v.SetDefault("forecast.trend_epsilon", 0.05)

	// Policy defaults
	v.SetDefault("policy.min_capacity", 1)
	v.SetDefault("policy.max_capacity", 20)
	v.SetDefault("policy.per_instance_capacity", 50.0)
	v.SetDefault("policy.scale_down_cooldown", "5m")
	v.SetDefault("policy.min_confidence", 0.6)
	v.SetDefault("policy.scale_down_load_factor", 0.7)

	// Health defaults
	v.SetDefault("health.unhealthy_threshold", 3)
	v.SetDefault("health.remediation_fraction", 0.25)
	v.SetDefault("health.drain_grace_period", "30s")

	// Orchestration defaults
	v.SetDefault("orchestration.type", "simulator")
	v.SetDefault("orchestration.region", "us-east-1")
	v.SetDefault("orchestration.cluster", "demo-cluster")
	v.SetDefault("orchestration.service", "demo-service")
	v.SetDefault("orchestration.timeout", "10s")
	v.SetDefault("orchestration.retry_attempts", 2)
	v.SetDefault("orchestration.retry_backoff", "500ms")

	// State store defaults
	v.SetDefault("state_store.type", "memory")
	v.SetDefault("state_store.redis_addr", "localhost:6379")
	v.SetDefault("state_store.redis_db", 0)
	v.SetDefault("state_store.ttl", "24h")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fleetpilot")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Notify defaults
	v.SetDefault("notify.timeout", "8s")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)
}
