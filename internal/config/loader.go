package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all settings.
const envPrefix = "CASETRACK"

// configKeys lists every settable key.  Viper only surfaces environment
// overrides through Unmarshal for keys it already knows about, so each key
// is registered with an empty default.
var configKeys = []string{
	"server.host", "server.port", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"database.host", "database.port", "database.database", "database.username", "database.password",
	"database.ssl_mode", "database.max_open_conns", "database.max_idle_conns", "database.conn_max_lifetime",
	"database.conn_max_idle_time", "database.statement_timeout", "database.lock_timeout", "database.migrations_dir",
	"redis.enabled", "redis.addr", "redis.username", "redis.password", "redis.db",
	"redis.pool_size", "redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.acks", "kafka.batch_timeout", "kafka.write_timeout",
	"log.level", "log.format", "log.output_paths",
	"sweep.enabled", "sweep.interval",
}

// newViper builds a pre-configured viper instance: YAML file type,
// CASETRACK_ env prefix, automatic env binding, and a key replacer mapping
// "." to "_" so "database.host" resolves to "CASETRACK_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		v.SetDefault(key, nil)
	}
	return v
}

// Load reads the YAML file at configPath, merges CASETRACK_* environment
// overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CASETRACK_* environment
// variables with no config file, the preferred strategy for containerized
// deployments.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with each newly parsed,
// valid Config.  Intended for hot-reloading non-critical settings such as
// the log level; a change that fails to parse or validate is skipped.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on error.  For use in main() where a
// config failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
