package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("cachebackend", validateCacheBackend)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateCacheBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "memory", "redis", "none":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if err := cfg.Engine.Constraints.Validate(); err != nil {
		return fmt.Errorf("invalid engine.constraints: %w", err)
	}

	if cfg.Engine.BatchSize > cfg.Engine.Iterations {
		return fmt.Errorf("engine.batch_size (%d) cannot exceed engine.iterations (%d)", cfg.Engine.BatchSize, cfg.Engine.Iterations)
	}

	if cfg.Engine.Cache.Backend == "redis" && !cfg.Redis.Enabled {
		return fmt.Errorf("engine.cache.backend 'redis' requires redis.enabled")
	}
	if cfg.Redis.Enabled && (cfg.Redis.Host == "" || cfg.Redis.Port == 0) {
		return fmt.Errorf("redis.host and redis.port are required when redis is enabled")
	}

	if cfg.Jobs.EstimatedDurationSeconds > cfg.Jobs.TimeoutSeconds {
		return fmt.Errorf("jobs.estimated_duration_seconds cannot exceed jobs.timeout_seconds")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.Metrics.Enabled && cfg.Health.Port != 0 && cfg.Metrics.Port == cfg.Health.Port {
		return fmt.Errorf("metrics.port and health.port must differ")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "cachebackend":
			fmt.Fprintf(&b, "- Field '%s' must be one of: memory, redis, none\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
		}
		if isTestCredential(cfg.Database.Password) {
			return fmt.Errorf("production environment should not use test database credentials")
		}
		if cfg.Engine.Seed != 0 {
			return fmt.Errorf("engine.seed must be unset in production")
		}
	}
	return nil
}

var testCredentialPattern = regexp.MustCompile(`(?i)test|demo|example|placeholder|YOUR_`)

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	return credential == "" || testCredentialPattern.MatchString(credential)
}
