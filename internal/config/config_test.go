package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" || cfg.DBDriver != "sqlite" || cfg.Payments.Provider != "sandbox" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

// --- Load success + normalization ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // -> release

	t.Setenv("LOG_LEVEL", "WARNING") // -> warn
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("SWAGGER_ENABLED", "1")
	t.Setenv("API_BASE_PATH", "api/v1/")

	t.Setenv("DB_DRIVER", " Postgres ")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/parts?sslmode=disable")
	t.Setenv("MIGRATIONS_PATH", "file://migrations")

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("ADMIN_IDS", "root, ops ")
	t.Setenv("PAYMENT_PROVIDER", "HTTP")
	t.Setenv("PAYMENT_SECRET_KEY", "sk_test")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec")
	t.Setenv("UNLOCK_FEE", "7.5")
	t.Setenv("UNLOCK_CURRENCY", "ngn")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBDriver != "postgres" || cfg.MigrationsPath != "file://migrations" {
		t.Fatalf("database unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !reflect.DeepEqual(cfg.AdminIDs, []string{"root", "ops"}) {
		t.Fatalf("admin ids unexpected: %#v", cfg.AdminIDs)
	}
	if cfg.Payments.Provider != "http" || cfg.Payments.UnlockFee != 7.5 || cfg.Payments.Currency != "NGN" {
		t.Fatalf("payments unexpected: %+v", cfg.Payments)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) || cfg.Kafka.Topic != "marketplace-lifecycle" {
		t.Fatalf("kafka unexpected: %+v", cfg.Kafka)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoadFile_YAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := `
port: "9000"
log_level: debug
db_path: market.db
admin_ids: ["a1"]
payments:
  unlock_fee: 3
  currency: usd
kafka:
  topic: parts
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("PORT", "9100")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("env should override file, got port %q", cfg.Port)
	}
	if cfg.LogLevel != "debug" || cfg.DBPath != "market.db" || cfg.Kafka.Topic != "parts" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Payments.UnlockFee != 3 || cfg.Payments.Currency != "USD" {
		t.Fatalf("payments from file unexpected: %+v", cfg.Payments)
	}
	if !cfg.IsAdmin("a1") {
		t.Fatalf("admin from file not applied: %#v", cfg.AdminIDs)
	}
	// Untouched keys keep their defaults.
	if cfg.RateBurst != 10 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("defaults not applied alongside file: %+v", cfg)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("RATE_RPS", "x")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for non-numeric RATE_RPS")
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown DB_DRIVER", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"unknown provider", map[string]string{"PAYMENT_PROVIDER": "stripe"}, "PAYMENT_PROVIDER"},
		{"http provider without key", map[string]string{"PAYMENT_PROVIDER": "http"}, "PAYMENT_SECRET_KEY"},
		{"http provider without webhook secret", map[string]string{"PAYMENT_PROVIDER": "http", "PAYMENT_SECRET_KEY": "sk"}, "PAYMENT_WEBHOOK_SECRET"},
		{"zero unlock fee", map[string]string{"UNLOCK_FEE": "0"}, "UNLOCK_FEE"},
		{"bad currency", map[string]string{"UNLOCK_CURRENCY": "CEDI"}, "UNLOCK_CURRENCY"},
		{"zero payment timeout", map[string]string{"PAYMENT_TIMEOUT": "0s"}, "PAYMENT_TIMEOUT"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected error containing %q, got: %v", tc.want, err)
			}
		})
	}
}

// --- helpers ---

func TestIsAdmin(t *testing.T) {
	cfg := Config{AdminIDs: []string{"root", "ops"}}
	if !cfg.IsAdmin("root") || !cfg.IsAdmin(" ops ") {
		t.Fatalf("expected allowlisted ids to be admins")
	}
	if cfg.IsAdmin("") || cfg.IsAdmin("buyer-1") {
		t.Fatalf("unexpected admin match")
	}
}

func TestHelpers_trimAll_and_normalizeBasePath(t *testing.T) {
	if out := trimAll(nil); out != nil {
		t.Fatalf("trimAll nil should return nil")
	}
	if out := trimAll([]string{" ", ""}); out != nil {
		t.Fatalf("trimAll of blanks should return nil, got %#v", out)
	}
	want := []string{"a", "b", "c"}
	if got := trimAll([]string{" a", " ", "b ", "  c  "}); !reflect.DeepEqual(got, want) {
		t.Fatalf("trimAll mismatch: got %#v want %#v", got, want)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "CONFIG_PATH", "DB_DRIVER", "DATABASE_URL", "PAYMENT_PROVIDER", "ADMIN_IDS", "KAFKA_BROKERS"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
