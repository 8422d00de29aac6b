// Package config loads and validates the configuration for a naming or
// storage process. Grounded on the teacher's internal/config/config.go:
// the same load-from-file, override-from-environment, validate, sane-
// defaults pattern over gopkg.in/yaml.v2, reduced to the
// sections this system's processes actually need.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration is the complete configuration for either process type; a
// storage server ignores Naming.RegistrationPort/ServicePort and a naming
// process ignores Storage.
type Configuration struct {
	Naming   NamingConfig   `yaml:"naming"`
	Storage  StorageConfig  `yaml:"storage"`
	RMI      RMIConfig      `yaml:"rmi"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// NamingConfig configures the naming process's two well-known skeletons.
type NamingConfig struct {
	BindHost          string `yaml:"bind_host"`
	RegistrationPort  int    `yaml:"registration_port"`
	ServicePort       int    `yaml:"service_port"`
}

// StorageConfig configures a storage server.
type StorageConfig struct {
	LocalRoot           string `yaml:"local_root"`
	NamingRegistrationAddr string `yaml:"naming_registration_addr"`
	BindHost            string `yaml:"bind_host"`
}

// RMIConfig tunes the RMI fabric shared by every skeleton in the process.
type RMIConfig struct {
	IdleWorkerTimeout     time.Duration `yaml:"idle_worker_timeout"`
	MaxRegistrationWorkers int          `yaml:"max_registration_workers"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures internal/metrics's HTTP exposition.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RegistrationPort and ServicePort are the well-known ports spec §6
// requires every naming process to publish.
const (
	RegistrationPort = 7090
	ServicePort      = 7091
)

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Naming: NamingConfig{
			BindHost:         "0.0.0.0",
			RegistrationPort: RegistrationPort,
			ServicePort:      ServicePort,
		},
		Storage: StorageConfig{
			LocalRoot:              "/var/lib/distfs/storage",
			NamingRegistrationAddr: fmt.Sprintf("127.0.0.1:%d", RegistrationPort),
			BindHost:               "0.0.0.0",
		},
		RMI: RMIConfig{
			IdleWorkerTimeout:      30 * time.Second,
			MaxRegistrationWorkers: 4,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9100,
		},
	}
}

// LoadFromFile loads configuration from a YAML file, starting from
// NewDefault so unset fields keep their defaults.
func LoadFromFile(filename string) (*Configuration, error) {
	c := NewDefault()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return c, nil
}

// LoadFromEnv overlays environment-variable overrides onto c.
func (c *Configuration) LoadFromEnv() {
	if v := os.Getenv("DISTFS_NAMING_BIND_HOST"); v != "" {
		c.Naming.BindHost = v
	}
	if v := os.Getenv("DISTFS_NAMING_REGISTRATION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Naming.RegistrationPort = port
		}
	}
	if v := os.Getenv("DISTFS_NAMING_SERVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Naming.ServicePort = port
		}
	}
	if v := os.Getenv("DISTFS_STORAGE_LOCAL_ROOT"); v != "" {
		c.Storage.LocalRoot = v
	}
	if v := os.Getenv("DISTFS_STORAGE_NAMING_ADDR"); v != "" {
		c.Storage.NamingRegistrationAddr = v
	}
	if v := os.Getenv("DISTFS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DISTFS_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("DISTFS_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("DISTFS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = port
		}
	}
}

// SaveToFile saves c as YAML, creating parent directories as needed.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks internal consistency.
func (c *Configuration) Validate() error {
	if c.Naming.RegistrationPort == c.Naming.ServicePort {
		return fmt.Errorf("naming.registration_port and naming.service_port cannot be the same")
	}
	if c.RMI.MaxRegistrationWorkers <= 0 {
		return fmt.Errorf("rmi.max_registration_workers must be greater than 0")
	}
	if c.RMI.IdleWorkerTimeout <= 0 {
		return fmt.Errorf("rmi.idle_worker_timeout must be greater than 0")
	}

	valid := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	ok := false
	for _, level := range valid {
		if strings.EqualFold(c.Logging.Level, level) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid logging.level: %s (must be one of: %s)", c.Logging.Level, strings.Join(valid, ", "))
	}

	return nil
}
