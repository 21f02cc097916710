package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/Strob0t/Tasklane/internal/domain/tenant"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tasklane.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
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
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
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
	setString(&cfg.Server.Port, "TASKLANE_PORT")
	setString(&cfg.Server.CORSOrigin, "TASKLANE_CORS_ORIGIN")
	setString(&cfg.Server.Env, "APP_ENV")
	setDuration(&cfg.Server.RequestTimeout, "TASKLANE_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "TASKLANE_SHUTDOWN_TIMEOUT")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TASKLANE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TASKLANE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TASKLANE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TASKLANE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TASKLANE_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.AuditStream, "TASKLANE_AUDIT_STREAM")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TASKLANE_REDIS_DB")

	setString(&cfg.Logging.Level, "TASKLANE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TASKLANE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TASKLANE_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "TASKLANE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TASKLANE_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "TASKLANE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TASKLANE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TASKLANE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TASKLANE_RATE_MAX_IDLE_TIME")
	setInt(&cfg.Rate.LoginAttempts, "TASKLANE_LOGIN_ATTEMPTS")
	setDuration(&cfg.Rate.LoginWindow, "TASKLANE_LOGIN_WINDOW")

	// Auth
	setString(&cfg.Auth.SecretEnv, "TASKLANE_JWT_SECRET_ENV")
	setDuration(&cfg.Auth.TokenTTL, "TASKLANE_TOKEN_TTL")
	setString(&cfg.Auth.Issuer, "TASKLANE_TOKEN_ISSUER")
	setString(&cfg.Auth.Audience, "TASKLANE_TOKEN_AUDIENCE")
	setInt(&cfg.Auth.BcryptCost, "TASKLANE_BCRYPT_COST")
	setDuration(&cfg.Auth.RevocationPurgeInterval, "TASKLANE_REVOCATION_PURGE_INTERVAL")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "TASKLANE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.SubdomainTTL, "TASKLANE_CACHE_SUBDOMAIN_TTL")

	// Idempotency
	setString(&cfg.Idempotency.Bucket, "TASKLANE_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "TASKLANE_IDEMPOTENCY_TTL")

	// Plans
	setInt(&cfg.Plans.Free.MaxUsers, "TASKLANE_PLAN_FREE_MAX_USERS")
	setInt(&cfg.Plans.Free.MaxProjects, "TASKLANE_PLAN_FREE_MAX_PROJECTS")
	setInt(&cfg.Plans.Pro.MaxUsers, "TASKLANE_PLAN_PRO_MAX_USERS")
	setInt(&cfg.Plans.Pro.MaxProjects, "TASKLANE_PLAN_PRO_MAX_PROJECTS")
	setInt(&cfg.Plans.Enterprise.MaxUsers, "TASKLANE_PLAN_ENTERPRISE_MAX_USERS")
	setInt(&cfg.Plans.Enterprise.MaxProjects, "TASKLANE_PLAN_ENTERPRISE_MAX_PROJECTS")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "TASKLANE_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "TASKLANE_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "TASKLANE_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.Env != "development" && cfg.Server.Env != "production" {
		return fmt.Errorf("server.env must be development or production, got %q", cfg.Server.Env)
	}
	if cfg.Postgres.DSN == "" && !cfg.Server.Development() {
		return errors.New("postgres.dsn is required outside development")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Rate.LoginAttempts < 1 || cfg.Rate.LoginWindow <= 0 {
		return errors.New("rate.login_attempts and rate.login_window must be positive")
	}
	if cfg.Auth.SecretEnv == "" {
		return errors.New("auth.secret_env is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if cfg.Auth.Issuer == "" || cfg.Auth.Audience == "" {
		return errors.New("auth.issuer and auth.audience are required")
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Auth.RevocationPurgeInterval <= 0 {
		return errors.New("auth.revocation_purge_interval must be positive")
	}
	for _, plan := range []tenant.Plan{tenant.PlanFree, tenant.PlanPro, tenant.PlanEnterprise} {
		l, _ := cfg.Plans.For(plan)
		if l.MaxUsers < 1 || l.MaxProjects < 1 {
			return fmt.Errorf("plans.%s limits must be positive", plan)
		}
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
