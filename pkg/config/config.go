package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Client  ClientConfig  `yaml:"client" json:"client"`
	History HistoryConfig `yaml:"history" json:"history"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Mirror  MirrorConfig  `yaml:"mirror" json:"mirror"`
}

// ServerConfig holds receiver server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" json:"port" env:"SERVER_PORT" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"5m"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
	MaxUploadMemory int64         `yaml:"max_upload_memory" json:"max_upload_memory" env:"SERVER_MAX_UPLOAD_MEMORY" default:"33554432"` // 32MB
	Debug           bool          `yaml:"debug" json:"debug" env:"SERVER_DEBUG" default:"false"`
}

// StorageConfig holds store directory configuration
type StorageConfig struct {
	Path string `yaml:"path" json:"path" env:"STORAGE_PATH" default:"downloads"`
}

// ClientConfig holds sender client configuration
type ClientConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"CLIENT_TIMEOUT" default:"30s"`
}

// HistoryConfig selects the transfer log backend
type HistoryConfig struct {
	Backend  string `yaml:"backend" json:"backend" env:"HISTORY_BACKEND" default:"memory"` // memory, sqlite
	Database string `yaml:"database" json:"database" env:"HISTORY_DATABASE" default:":memory:"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT" default:"json"` // json, console
	Output string `yaml:"output" json:"output" env:"LOG_OUTPUT" default:"stderr"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" env:"METRICS_ENABLED" default:"false"`
	Port      int    `yaml:"port" json:"port" env:"METRICS_PORT" default:"9090"`
	Path      string `yaml:"path" json:"path" env:"METRICS_PATH" default:"/metrics"`
	Namespace string `yaml:"namespace" json:"namespace" env:"METRICS_NAMESPACE" default:"filedrop"`
}

// MirrorConfig holds S3 replication configuration
type MirrorConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled" env:"MIRROR_ENABLED" default:"false"`
	Endpoint       string `yaml:"endpoint" json:"endpoint" env:"MIRROR_ENDPOINT"`
	Region         string `yaml:"region" json:"region" env:"MIRROR_REGION" default:"us-east-1"`
	Bucket         string `yaml:"bucket" json:"bucket" env:"MIRROR_BUCKET"`
	Prefix         string `yaml:"prefix" json:"prefix" env:"MIRROR_PREFIX"`
	AccessKey      string `yaml:"access_key" json:"access_key" env:"MIRROR_ACCESS_KEY" sensitive:"true"`
	SecretKey      string `yaml:"secret_key" json:"secret_key" env:"MIRROR_SECRET_KEY" sensitive:"true"`
	ForcePathStyle bool   `yaml:"force_path_style" json:"force_path_style" env:"MIRROR_FORCE_PATH_STYLE" default:"true"`
}

// ConfigManager manages configuration loading and validation
type ConfigManager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	watchers   []func(*Config)
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		watchers: make([]func(*Config), 0),
	}
}

// Load loads configuration from file and environment variables
func (cm *ConfigManager) Load(configPath string) (*Config, error) {
	// Start with default configuration
	config := DefaultConfig()

	// Load from file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cm.loadFromFile(config, configPath); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := cm.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := NewValidator().ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.mu.Lock()
	cm.configPath = configPath
	cm.config = config
	cm.mu.Unlock()

	return config, nil
}

// Reload reloads the configuration and notifies watchers
func (cm *ConfigManager) Reload() error {
	cm.mu.RLock()
	path := cm.configPath
	cm.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("no config path set")
	}

	config, err := cm.Load(path)
	if err != nil {
		return err
	}

	cm.mu.RLock()
	watchers := append([]func(*Config){}, cm.watchers...)
	cm.mu.RUnlock()

	for _, watcher := range watchers {
		watcher(config)
	}
	return nil
}

// Watch adds a configuration change watcher
func (cm *ConfigManager) Watch(watcher func(*Config)) {
	cm.mu.Lock()
	cm.watchers = append(cm.watchers, watcher)
	cm.mu.Unlock()
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigPath returns the path passed to the last Load
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// loadFromFile loads configuration from a YAML file
func (cm *ConfigManager) loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// loadFromEnv loads configuration from environment variables
func (cm *ConfigManager) loadFromEnv(config *Config) error {
	return cm.setEnvVars(reflect.ValueOf(config).Elem())
}

// setEnvVars recursively sets environment variables on struct fields
func (cm *ConfigManager) setEnvVars(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			if field.Kind() == reflect.Struct {
				if err := cm.setEnvVars(field); err != nil {
					return err
				}
			}
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := cm.setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

// setFieldValue sets a field value from an environment variable string
func (cm *ConfigManager) setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			var intValue int64
			_, err := fmt.Sscanf(value, "%d", &intValue)
			if err != nil {
				return err
			}
			field.SetInt(intValue)
		}
	case reflect.Bool:
		boolValue := value == "true" || value == "1" || value == "yes" || value == "on"
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(value, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			field.Set(reflect.ValueOf(values))
		}
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     5 * time.Minute,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxUploadMemory: 32 << 20,
		},
		Storage: StorageConfig{
			Path: "downloads",
		},
		Client: ClientConfig{
			Timeout: 30 * time.Second,
		},
		History: HistoryConfig{
			Backend:  "memory",
			Database: ":memory:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Port:      9090,
			Path:      "/metrics",
			Namespace: "filedrop",
		},
		Mirror: MirrorConfig{
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
	}
}

// LogFields summarizes the configuration without sensitive values
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("server", fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)),
		zap.String("storage_path", c.Storage.Path),
		zap.Duration("client_timeout", c.Client.Timeout),
		zap.String("history_backend", c.History.Backend),
		zap.Bool("metrics", c.Metrics.Enabled),
		zap.Bool("mirror", c.Mirror.Enabled),
		zap.Bool("mirror_credentials", c.Mirror.AccessKey != ""),
	}
}
