package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "careerforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("CAREERFORGE_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CAREERFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "CAREERFORGE_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "CAREERFORGE_REQUEST_TIMEOUT")
	setInt64(&cfg.Server.MaxBodyBytes, "CAREERFORGE_MAX_BODY_BYTES")

	setString(&cfg.Database.Driver, "CAREERFORGE_DB_DRIVER")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CAREERFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CAREERFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CAREERFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CAREERFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CAREERFORGE_PG_HEALTH_CHECK")
	setString(&cfg.SQLite.Path, "CAREERFORGE_SQLITE_PATH")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.KVBucket, "CAREERFORGE_NATS_KV_BUCKET")

	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "CAREERFORGE_LLM_MODEL")
	setFloat64(&cfg.LiteLLM.Temperature, "CAREERFORGE_LLM_TEMPERATURE")
	setInt(&cfg.LiteLLM.MaxTokens, "CAREERFORGE_LLM_MAX_TOKENS")
	setDuration(&cfg.LiteLLM.Timeout, "CAREERFORGE_LLM_TIMEOUT")

	setString(&cfg.Logging.Level, "CAREERFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CAREERFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CAREERFORGE_LOG_ASYNC")
	setString(&cfg.Logging.File, "CAREERFORGE_LOG_FILE")

	setInt(&cfg.Breaker.MaxFailures, "CAREERFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CAREERFORGE_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "CAREERFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CAREERFORGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CAREERFORGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CAREERFORGE_RATE_MAX_IDLE_TIME")

	// Auth
	setBool(&cfg.Auth.Enabled, "CAREERFORGE_AUTH_ENABLED")
	setString(&cfg.Auth.JWTSecret, "CAREERFORGE_JWT_SECRET")
	setString(&cfg.Auth.Issuer, "CAREERFORGE_JWT_ISSUER")
	setString(&cfg.Auth.DevUserID, "CAREERFORGE_DEV_USER_ID")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "CAREERFORGE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "CAREERFORGE_CACHE_TTL")

	// Extraction
	setInt(&cfg.Extract.MaxInputBytes, "CAREERFORGE_EXTRACT_MAX_INPUT")
	setString(&cfg.Extract.Prefer, "CAREERFORGE_EXTRACT_PREFER")

	// Jobs
	setBool(&cfg.Jobs.Enabled, "CAREERFORGE_JOBS_ENABLED")
	setDuration(&cfg.Jobs.ReminderInterval, "CAREERFORGE_REMINDER_INTERVAL")
	setDuration(&cfg.Jobs.InsightInterval, "CAREERFORGE_INSIGHT_INTERVAL")
	setInt(&cfg.Jobs.InsightConcurrency, "CAREERFORGE_INSIGHT_CONCURRENCY")
	setDuration(&cfg.Jobs.InsightRefreshAfter, "CAREERFORGE_INSIGHT_REFRESH_AFTER")

	// OpenTelemetry
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Extract.MaxInputBytes < 1 {
		return errors.New("extract.max_input_bytes must be >= 1")
	}
	switch cfg.Extract.Prefer {
	case "first", "object", "array":
	default:
		return fmt.Errorf("extract.prefer must be first, object or array, got %q", cfg.Extract.Prefer)
	}
	if cfg.Jobs.InsightConcurrency < 1 {
		return errors.New("jobs.insight_concurrency must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
