// Package config loads process configuration from the environment, with a
// .env file honored in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

type DatabaseConfig struct {
	// DSN takes precedence over the discrete fields when set.
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type WorkerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	RunTimeout   time.Duration
}

type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

type Config struct {
	Environment string
	ServiceName string
	Database    DatabaseConfig
	Server      ServerConfig
	Worker      WorkerConfig
	Tracing     TracingConfig
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PostgresDSN builds the connection string pkg/db hands to the driver.
func (c DatabaseConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: envString("ENVIRONMENT", "development"),
		ServiceName: envString("SERVICE_NAME", "condocore"),
		Database: DatabaseConfig{
			DSN:             envString("DATABASE_URL", ""),
			Host:            envString("DB_HOST", "localhost"),
			Port:            envInt("DB_PORT", 5432),
			User:            envString("DB_USER", "postgres"),
			Password:        envString("DB_PASSWORD", ""),
			Name:            envString("DB_NAME", "condocore"),
			SSLMode:         envString("DB_SSLMODE", "disable"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Server: ServerConfig{
			Port:            envInt("PORT", 8080),
			ShutdownTimeout: envDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Worker: WorkerConfig{
			Enabled:      envBool("GENERATION_WORKER_ENABLED", true),
			PollInterval: envDuration("GENERATION_POLL_INTERVAL", time.Hour),
			RunTimeout:   envDuration("GENERATION_RUN_TIMEOUT", 5*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:          envBool("OTEL_TRACES_ENABLED", false),
			ExporterEndpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ExporterProtocol: envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    envFloat("OTEL_TRACES_SAMPLER_RATIO", 1.0),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid PORT %d", cfg.Server.Port)
	}
	return cfg, nil
}

var Module = fx.Module("config", fx.Provide(Load))

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
