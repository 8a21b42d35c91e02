// Package config provides configuration management for the pick'em optimizer.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/pickem-optimizer/internal/models"
	"github.com/yourusername/pickem-optimizer/internal/simulator"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Jobs     JobsConfig     `mapstructure:"jobs" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	AWS      AWSConfig      `mapstructure:"aws"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// RedisConfig configures the optional shared simulation cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	PoolSize int    `mapstructure:"pool_size" validate:"gte=0"`
}

// EngineConfig holds the optimization engine defaults.
type EngineConfig struct {
	Iterations          int                `mapstructure:"iterations" validate:"gt=0"`
	BatchSize           int                `mapstructure:"batch_size" validate:"gt=0"`
	Workers             int                `mapstructure:"workers" validate:"gte=0"`
	Seed                int64              `mapstructure:"seed"`
	ConfidenceThreshold float64            `mapstructure:"confidence_threshold" validate:"gt=0.5,lte=1"`
	ConsensusSource     string             `mapstructure:"consensus_source" validate:"required"`
	TargetScore         int                `mapstructure:"target_score" validate:"gte=0"`
	Constraints         models.Constraints `mapstructure:"constraints"`
	Cache               CacheConfig        `mapstructure:"cache"`
}

// CacheConfig selects the simulation cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend" validate:"required,cachebackend"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gt=0"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
}

// JobsConfig configures asynchronous job execution.
type JobsConfig struct {
	TimeoutSeconds           int `mapstructure:"timeout_seconds" validate:"gt=0"`
	EstimatedDurationSeconds int `mapstructure:"estimated_duration_seconds" validate:"gt=0"`
	PollIntervalSeconds      int `mapstructure:"poll_interval_seconds" validate:"gt=0"`
	MaxConcurrent            int `mapstructure:"max_concurrent" validate:"gt=0"`
	DefaultListLimit         int `mapstructure:"default_list_limit" validate:"gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// HealthConfig configures the health check server.
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// AWSConfig names the optional Secrets Manager secret.
type AWSConfig struct {
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// SimulationConfig converts the engine section into simulator settings.
func (c *Config) SimulationConfig() simulator.Config {
	return simulator.Config{
		Iterations: c.Engine.Iterations,
		BatchSize:  c.Engine.BatchSize,
		Workers:    c.Engine.Workers,
		Seed:       c.Engine.Seed,
	}
}

// CacheTTL returns the simulation cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Engine.Cache.TTLSeconds) * time.Second
}

// JobTimeout returns the per-job deadline.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Jobs.TimeoutSeconds) * time.Second
}

// PollInterval returns how often the scheduler looks for pending jobs.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Jobs.PollIntervalSeconds) * time.Second
}
