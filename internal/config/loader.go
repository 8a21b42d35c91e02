package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "PICKEM_OPTIMIZER"
	defaultConfigPath = "config/config.yaml"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// PICKEM_OPTIMIZER_ENGINE_ITERATIONS overrides engine.iterations
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// readExpanded reads a YAML file into v after expanding ${VAR} placeholders.
func readExpanded(v *viper.Viper, data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := readExpanded(v, data); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := readExpanded(v, data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pickem-optimizer")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "pickem")
	v.SetDefault("database.user", "pickem")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("engine.iterations", 10000)
	v.SetDefault("engine.batch_size", 1000)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.confidence_threshold", 0.75)
	v.SetDefault("engine.consensus_source", "consensus")
	v.SetDefault("engine.target_score", 7)
	v.SetDefault("engine.constraints.total_picks", 9)
	v.SetDefault("engine.constraints.max_3_0", 1)
	v.SetDefault("engine.constraints.max_0_3", 1)
	v.SetDefault("engine.constraints.advance_picks", 7)
	v.SetDefault("engine.cache.backend", "memory")
	v.SetDefault("engine.cache.ttl_seconds", 3600)
	v.SetDefault("engine.cache.max_size", 1000)

	v.SetDefault("jobs.timeout_seconds", 300)
	v.SetDefault("jobs.estimated_duration_seconds", 30)
	v.SetDefault("jobs.poll_interval_seconds", 5)
	v.SetDefault("jobs.max_concurrent", 4)
	v.SetDefault("jobs.default_list_limit", 20)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.port", 8080)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.secret_name", "")
}

// ResolvePath returns the file named by PICKEM_OPTIMIZER_CONFIG_PATH, or
// fallback when that variable is unset.
func ResolvePath(fallback string) string {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return fallback
}
