package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage driver names accepted in STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds the application's configuration values, populated from
// environment variables.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	HttpServer ServerConfig
	Storage    StorageConfig
	Postgres   PostgresConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	// Driver is "memory" (default) or "postgres".
	Driver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	// SeedSampleData loads the demo catalog into the memory store on boot.
	SeedSampleData bool `envconfig:"SEED_SAMPLE_DATA" default:"false"`
}

// PostgresConfig holds PostgreSQL connection details. Only consulted when
// STORAGE_DRIVER=postgres.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:""`
	Password string `envconfig:"POSTGRES_PASSWORD" default:""`
	DBName   string `envconfig:"POSTGRES_DBNAME" default:""`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// Load initializes the configuration from environment variables. It should
// be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	switch cfg.Storage.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: must be %q or %q",
			cfg.Storage.Driver, DriverMemory, DriverPostgres)
	}
	if cfg.Storage.Driver == DriverPostgres && cfg.Postgres.DBName == "" {
		return nil, fmt.Errorf("POSTGRES_DBNAME is required when STORAGE_DRIVER=postgres")
	}

	return &cfg, nil
}
