package config

import (
	"time"

	"github.com/fleetpilot/fleetpilot/pkg/database"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Forecast      ForecastConfig      `mapstructure:"forecast"`
	Policy        PolicyConfig        `mapstructure:"policy"`
	Health        HealthConfig        `mapstructure:"health"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	StateStore    StateStoreConfig    `mapstructure:"state_store"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	API           APIConfig           `mapstructure:"api"`
	Prometheus    PrometheusConfig    `mapstructure:"prometheus"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AgentConfig struct {
	ResourceID string        `mapstructure:"resource_id"`
	Interval   time.Duration `mapstructure:"interval"`
}

type MetricsConfig struct {
	Type           string               `mapstructure:"type"`
	Endpoint       string               `mapstructure:"endpoint"`
	Namespace      string               `mapstructure:"namespace"`
	PeriodSeconds  int                  `mapstructure:"period_seconds"`
	Lookback       time.Duration        `mapstructure:"lookback"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	JSONPaths      JSONPathsConfig      `mapstructure:"json_paths"`
}

// JSONPathsConfig holds gjson paths used by the HTTP metric source to pluck
// sample fields out of arbitrary JSON responses.
type JSONPathsConfig struct {
	Samples     string `mapstructure:"samples"`
	Timestamp   string `mapstructure:"timestamp"`
	RequestRate string `mapstructure:"request_rate"`
	CPU         string `mapstructure:"cpu"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ForecastConfig struct {
	HorizonSeconds int     `mapstructure:"horizon_seconds"`
	SlopeWindow    int     `mapstructure:"slope_window"`
	TrendEpsilon   float64 `mapstructure:"trend_epsilon"`
}

type PolicyConfig struct {
	MinCapacity         int           `mapstructure:"min_capacity"`
	MaxCapacity         int           `mapstructure:"max_capacity"`
	PerInstanceCapacity float64       `mapstructure:"per_instance_capacity"`
	ScaleDownCooldown   time.Duration `mapstructure:"scale_down_cooldown"`
	MinConfidence       float64       `mapstructure:"min_confidence"`
	ScaleDownLoadFactor float64       `mapstructure:"scale_down_load_factor"`
}

type HealthConfig struct {
	UnhealthyThreshold  int           `mapstructure:"unhealthy_threshold"`
	RemediationFraction float64       `mapstructure:"remediation_fraction"`
	DrainGracePeriod    time.Duration `mapstructure:"drain_grace_period"`
}

type OrchestrationConfig struct {
	Type           string        `mapstructure:"type"`
	Region         string        `mapstructure:"region"`
	Cluster        string        `mapstructure:"cluster"`
	Service        string        `mapstructure:"service"`
	TargetGroupARN string        `mapstructure:"target_group_arn"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

type StateStoreConfig struct {
	Type          string        `mapstructure:"type"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

func (d DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		User:            d.User,
		Password:        d.Password,
		MaxConnections:  d.MaxConnections,
		SSLMode:         d.SSLMode,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}

type NotifyConfig struct {
	SlackWebhook string        `mapstructure:"slack_webhook"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
