// Package config provides configuration loading, defaults, and validation
// for the casetrack service.
package config

import (
	"fmt"
	"time"

	"github.com/medregula/casetrack/internal/infrastructure/database/postgres"
	"github.com/medregula/casetrack/internal/infrastructure/database/redis"
	"github.com/medregula/casetrack/internal/infrastructure/messaging/kafka"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
)

// Config is the root configuration tree.
type Config struct {
	Server   ServerConfig      `mapstructure:"server" yaml:"server"`
	Database postgres.Config   `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka" yaml:"kafka"`
	Log      logging.LogConfig `mapstructure:"log" yaml:"log"`
	Sweep    SweepConfig       `mapstructure:"sweep" yaml:"sweep"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig wraps the client settings with an enable switch; without redis
// the dashboard serves uncached.
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled" yaml:"enabled"`
	redis.Config `mapstructure:",squash" yaml:",inline"`
}

// KafkaConfig wraps the producer settings with an enable switch; without
// kafka alert events are simply not published.
type KafkaConfig struct {
	Enabled      bool `mapstructure:"enabled" yaml:"enabled"`
	kafka.Config `mapstructure:",squash" yaml:",inline"`
}

// SweepConfig controls the background expiry sweep.
type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host must not be empty")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database must not be empty")
	}
	if c.Sweep.Enabled && c.Sweep.Interval < time.Minute {
		return fmt.Errorf("sweep.interval must be at least one minute, got %s", c.Sweep.Interval)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers must not be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic must not be empty when kafka is enabled")
		}
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level unknown: %q", c.Log.Level)
	}
	return nil
}
