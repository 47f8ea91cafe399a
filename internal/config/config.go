// Package config provides application configuration loaded from environment
// variables (and optionally a YAML file) with defaults and validation. It
// centralizes application settings such as server timeouts, logging, database
// selection, rate limiting, payments, event publishing, and observability.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `yaml:"enable_hsts"  env:"ENABLE_HSTS"  env-default:"false"`
	HSTSMaxAge time.Duration `yaml:"hsts_max_age" env:"HSTS_MAX_AGE" env-default:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `yaml:"enabled"      env:"OTEL_ENABLED"                env-default:"false"`
	Endpoint    string  `yaml:"endpoint"     env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	Insecure    bool    `yaml:"insecure"     env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME"           env-default:"go-parts-market"`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_TRACES_SAMPLER_ARG"     env-default:"1.0"`
}

// PaymentsConfig configures the contact-unlock payment provider.
type PaymentsConfig struct {
	Provider      string        `yaml:"provider"       env:"PAYMENT_PROVIDER"       env-default:"sandbox"` // sandbox|http
	BaseURL       string        `yaml:"base_url"       env:"PAYMENT_BASE_URL"       env-default:"https://api.paystack.co"`
	SecretKey     string        `yaml:"secret_key"     env:"PAYMENT_SECRET_KEY"`
	WebhookSecret string        `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
	CallbackURL   string        `yaml:"callback_url"   env:"PAYMENT_CALLBACK_URL"`
	UnlockFee     float64       `yaml:"unlock_fee"     env:"UNLOCK_FEE"             env-default:"5"`
	Currency      string        `yaml:"currency"       env:"UNLOCK_CURRENCY"        env-default:"GHS"`
	Timeout       time.Duration `yaml:"timeout"        env:"PAYMENT_TIMEOUT"        env-default:"10s"`
}

// KafkaConfig configures lifecycle event publishing. An empty broker list
// selects the log-only publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic"   env:"KAFKA_TOPIC"   env-default:"marketplace-lifecycle"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `yaml:"port"                env:"PORT"                env-default:"8080"`
	ReadTimeout       time.Duration `yaml:"read_timeout"        env:"READ_TIMEOUT"        env-default:"15s"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT" env-default:"10s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"WRITE_TIMEOUT"       env-default:"20s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"        env:"IDLE_TIMEOUT"        env-default:"60s"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes"    env:"MAX_HEADER_BYTES"    env-default:"1048576"`
	GinMode           string        `yaml:"gin_mode"            env:"GIN_MODE"            env-default:"release"` // debug|release|test

	// Logging / Docs
	LogLevel       string `yaml:"log_level"       env:"LOG_LEVEL"       env-default:"info"` // debug|info|warn|error|fatal|panic
	LogPretty      bool   `yaml:"log_pretty"      env:"LOG_PRETTY"      env-default:"false"`
	SwaggerEnabled bool   `yaml:"swagger_enabled" env:"SWAGGER_ENABLED" env-default:"false"`
	APIBasePath    string `yaml:"api_base_path"   env:"API_BASE_PATH"   env-default:"/api/v1"`

	// Database
	DBDriver       string `yaml:"db_driver"       env:"DB_DRIVER"       env-default:"sqlite"` // sqlite|postgres
	DBPath         string `yaml:"db_path"         env:"DB_PATH"         env-default:"app.db"`
	DatabaseURL    string `yaml:"database_url"    env:"DATABASE_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH"`

	// Rate limiting
	RateRPS   float64 `yaml:"rate_rps"   env:"RATE_RPS"   env-default:"5"`
	RateBurst int     `yaml:"rate_burst" env:"RATE_BURST" env-default:"10"`

	// Web protection
	CORS     CORSConfig     `yaml:"cors"`
	Security SecurityConfig `yaml:"security"`

	// Idempotency
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL" env-default:"24h"`

	// Marketplace
	AdminIDs []string       `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
	Payments PaymentsConfig `yaml:"payments"`
	Kafka    KafkaConfig    `yaml:"kafka"`

	// Observability
	OTEL OTELConfig `yaml:"otel"`
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the YAML file named by CONFIG_PATH (when
// set) and environment variables, applies defaults, normalizes values, and
// validates the result.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit YAML path. An empty path reads the
// environment only. Environment variables override file values.
func LoadFile(path string) (Config, error) {
	var cfg Config
	var err error
	if strings.TrimSpace(path) != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, err
	}

	normalize(&cfg)
	return cfg, validate(cfg)
}

func normalize(cfg *Config) {
	cfg.GinMode = strings.ToLower(strings.TrimSpace(cfg.GinMode))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.Payments.Provider = strings.ToLower(strings.TrimSpace(cfg.Payments.Provider))
	cfg.Payments.Currency = strings.ToUpper(strings.TrimSpace(cfg.Payments.Currency))
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.CORS.AllowedOrigins = trimAll(cfg.CORS.AllowedOrigins)
	cfg.AdminIDs = trimAll(cfg.AdminIDs)
	cfg.Kafka.Brokers = trimAll(cfg.Kafka.Brokers)

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
}

func validate(cfg Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	switch cfg.Payments.Provider {
	case "sandbox":
	case "http":
		if strings.TrimSpace(cfg.Payments.SecretKey) == "" {
			return errors.New("PAYMENT_SECRET_KEY is required when PAYMENT_PROVIDER=http")
		}
		if strings.TrimSpace(cfg.Payments.WebhookSecret) == "" {
			return errors.New("PAYMENT_WEBHOOK_SECRET is required when PAYMENT_PROVIDER=http")
		}
	default:
		return errors.New("PAYMENT_PROVIDER must be one of: sandbox, http")
	}
	if cfg.Payments.UnlockFee <= 0 {
		return errors.New("UNLOCK_FEE must be > 0")
	}
	if len(cfg.Payments.Currency) != 3 {
		return errors.New("UNLOCK_CURRENCY must be a 3-letter code")
	}
	if cfg.Payments.Timeout <= 0 {
		return errors.New("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// IsAdmin reports whether id is on the configured admin allowlist.
func (c Config) IsAdmin(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
