package config

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	MinPort = 1024
	MaxPort = 65535
)

// Validator provides configuration validation functions
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePort checks that port lies in the unprivileged range
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", MinPort, MaxPort, port)
	}
	return nil
}

// ValidateConfig validates every section
func (v *Validator) ValidateConfig(config *Config) error {
	if err := v.validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if config.Storage.Path == "" {
		return fmt.Errorf("storage config validation failed: storage path cannot be empty")
	}

	if config.Client.Timeout <= 0 {
		return fmt.Errorf("client config validation failed: timeout must be positive")
	}

	if err := v.validateHistoryConfig(&config.History); err != nil {
		return fmt.Errorf("history config validation failed: %w", err)
	}

	if err := v.validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	if err := v.validateMetricsConfig(config); err != nil {
		return fmt.Errorf("metrics config validation failed: %w", err)
	}

	if err := v.validateMirrorConfig(&config.Mirror); err != nil {
		return fmt.Errorf("mirror config validation failed: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration
func (v *Validator) validateServerConfig(config *ServerConfig) error {
	if err := ValidatePort(config.Port); err != nil {
		return err
	}

	if config.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}

	if config.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	if config.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}

	if config.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	if config.MaxUploadMemory <= 0 {
		return fmt.Errorf("max upload memory must be positive")
	}

	return nil
}

func (v *Validator) validateHistoryConfig(config *HistoryConfig) error {
	switch config.Backend {
	case "memory":
	case "sqlite":
		if config.Database == "" {
			return fmt.Errorf("database is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown history backend: %s", config.Backend)
	}
	return nil
}

// validateLoggingConfig validates logging configuration
func (v *Validator) validateLoggingConfig(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(config.Level)) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", config.Level, validLevels)
	}

	validFormats := []string{"json", "console"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", config.Format, validFormats)
	}

	return nil
}

// validateMetricsConfig validates metrics configuration
func (v *Validator) validateMetricsConfig(config *Config) error {
	if !config.Metrics.Enabled {
		return nil
	}

	if err := ValidatePort(config.Metrics.Port); err != nil {
		return err
	}

	if config.Metrics.Port == config.Server.Port {
		return fmt.Errorf("metrics port %d collides with server port", config.Metrics.Port)
	}

	if !strings.HasPrefix(config.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	return nil
}

// validateMirrorConfig validates S3 mirror configuration
func (v *Validator) validateMirrorConfig(config *MirrorConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.Bucket == "" {
		return fmt.Errorf("bucket is required when the mirror is enabled")
	}

	if config.Endpoint != "" {
		u, err := url.Parse(config.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint URL: %s", config.Endpoint)
		}
	}

	if (config.AccessKey == "") != (config.SecretKey == "") {
		return fmt.Errorf("access key and secret key must be set together")
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
