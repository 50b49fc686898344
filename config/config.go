package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/similarity"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names a YAML file layered between defaults and environment.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	AppName                       string        `koanf:"app_name"`
	Port                          int           `koanf:"port"`
	LogLevel                      string        `koanf:"log_level"`
	PrettyLogs                    bool          `koanf:"pretty_logs"`
	LogFile                       string        `koanf:"log_file"`
	LogFileMaxSizeMB              int           `koanf:"log_file_max_size_mb"`
	LogFileMaxBackups             int           `koanf:"log_file_max_backups"`
	LogFileMaxAgeDays             int           `koanf:"log_file_max_age_days"`
	HttpServerWriteTimeoutSeconds int           `koanf:"http_server_write_timeout_seconds"`
	HttpServerReadTimeoutSeconds  int           `koanf:"http_server_read_timeout_seconds"`
	HttpServerIdleTimeoutSeconds  int           `koanf:"http_server_idle_timeout_seconds"`
	ShutdownTimeout               time.Duration `koanf:"shutdown_timeout"`
	StartupMaxAttempts            int           `koanf:"startup_max_attempts"`

	// PostgreSQL
	DatabaseHost                  string        `koanf:"db_host"`
	DatabasePort                  string        `koanf:"db_port"`
	DatabaseUserName              string        `koanf:"db_user_name"`
	DatabasePassword              string        `koanf:"db_password"`
	DatabaseName                  string        `koanf:"db_name"`
	DatabaseSSLMode               string        `koanf:"db_ssl_mode"`
	DatabaseMaxOpenConns          int           `koanf:"db_max_open_conns"`
	DatabaseMaxIdleConns          int           `koanf:"db_max_idle_conns"`
	DatabaseConnMaxLifetime       time.Duration `koanf:"db_conn_max_lifetime"`
	DatabaseMigrationFolderPath   string        `koanf:"db_migration_folder_path"`
	DatabaseMigrationVersion      int           `koanf:"db_migration_version"`
	DatabaseMigrationForce        int           `koanf:"db_migration_force"`
	DatabaseMigrationAutoRollback bool          `koanf:"db_migration_auto_rollback"`
	DatabaseAutoMigrate           bool          `koanf:"db_auto_migrate"`

	// Linkage
	CleanDefaultMode  string        `koanf:"clean_default_mode"`
	CleanBlockWorkers int           `koanf:"clean_block_workers"`
	CleanStreetForm   string        `koanf:"clean_street_form"`
	CleanLockTTL      time.Duration `koanf:"clean_lock_ttl"`

	// Redis (clean pass lock)
	RedisEnabled    bool   `koanf:"redis_enabled"`
	RedisHost       string `koanf:"redis_host"`
	RedisPort       int    `koanf:"redis_port"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	RedisLockPrefix string `koanf:"redis_lock_prefix"`

	// Kafka producer (restaurant.linked events)
	KafkaEnabled         bool          `koanf:"kafka_enabled"`
	KafkaBrokers         []string      `koanf:"kafka_brokers"`
	KafkaTopic           string        `koanf:"kafka_topic"`
	KafkaBatchSize       int           `koanf:"kafka_batch_size"`
	KafkaBatchTimeoutMS  int           `koanf:"kafka_batch_timeout_ms"`
	KafkaRequiredAcks    int           `koanf:"kafka_required_acks"`
	KafkaCompression     string        `koanf:"kafka_compression"`
	KafkaBreakerFailures int           `koanf:"kafka_breaker_failures"`
	KafkaBreakerTimeout  time.Duration `koanf:"kafka_breaker_timeout"`

	// Graph database (Memgraph/Neo4j)
	GraphEnabled  bool   `koanf:"graph_enabled"`
	GraphHost     string `koanf:"graph_host"`
	GraphPort     int    `koanf:"graph_port"`
	GraphUser     string `koanf:"graph_user"`
	GraphPassword string `koanf:"graph_password"`

	TracingEnabled bool `koanf:"tracing_enabled"`
}

func defaultConfig() *Config {
	return &Config{
		AppName:                       "clover-api",
		Port:                          30235,
		LogLevel:                      "info",
		LogFileMaxSizeMB:              100,
		LogFileMaxBackups:             3,
		LogFileMaxAgeDays:             28,
		HttpServerWriteTimeoutSeconds: 120,
		HttpServerReadTimeoutSeconds:  10,
		HttpServerIdleTimeoutSeconds:  10,
		ShutdownTimeout:               15 * time.Second,
		StartupMaxAttempts:            5,

		DatabaseHost:                  "localhost",
		DatabasePort:                  "5432",
		DatabaseName:                  "clover",
		DatabaseSSLMode:               "disable",
		DatabaseMaxOpenConns:          25,
		DatabaseMaxIdleConns:          10,
		DatabaseConnMaxLifetime:       10 * time.Minute,
		DatabaseMigrationFolderPath:   "db/pg",
		DatabaseMigrationAutoRollback: true,
		DatabaseAutoMigrate:           true,

		CleanDefaultMode:  "naive",
		CleanBlockWorkers: 1,
		CleanStreetForm:   "legacy",
		CleanLockTTL:      30 * time.Second,

		RedisHost:       "localhost",
		RedisPort:       6379,
		RedisLockPrefix: "clover:lock:",

		KafkaBrokers:         []string{"localhost:9092"},
		KafkaTopic:           "restaurant-events",
		KafkaBatchSize:       100,
		KafkaBatchTimeoutMS:  100,
		KafkaRequiredAcks:    1,
		KafkaCompression:     "snappy",
		KafkaBreakerFailures: 5,
		KafkaBreakerTimeout:  30 * time.Second,

		GraphHost: "localhost",
		GraphPort: 7687,
	}
}

// sliceKeys are parsed from comma-separated environment values
var sliceKeys = []string{"kafka_brokers"}

// Load layers struct defaults, an optional YAML file and the environment, in
// that order of precedence. path falls back to $CONFIG_PATH. A .env file in the
// working directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	known := make(map[string]bool)
	for _, key := range k.Keys() {
		known[key] = true
	}
	// DB_HOST -> db_host; variables that name no config key are ignored
	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !known[key] {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if _, err := linkage.ParseMode(c.CleanDefaultMode); err != nil {
		errs = append(errs, fmt.Errorf("clean_default_mode: %w", err))
	}
	if c.CleanBlockWorkers < 1 {
		errs = append(errs, fmt.Errorf("clean_block_workers must be at least 1, got %d", c.CleanBlockWorkers))
	}
	if !similarity.StreetForm(c.CleanStreetForm).Valid() {
		errs = append(errs, fmt.Errorf("clean_street_form must be legacy or joined, got %q", c.CleanStreetForm))
	}
	if c.RedisEnabled && c.CleanLockTTL < time.Second {
		errs = append(errs, fmt.Errorf("clean_lock_ttl is too short: %s", c.CleanLockTTL))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("kafka_brokers is required when kafka_enabled"))
	}
	if c.Port <= 0 {
		errs = append(errs, fmt.Errorf("port must be positive, got %d", c.Port))
	}
	return errors.Join(errs...)
}
