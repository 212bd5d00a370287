package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("OF_DB_URL", "postgres://localhost:5432/openfinance")
	t.Setenv("OF_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.GRPCPort != 9090 {
		t.Fatalf("unexpected ports: %d/%d", cfg.HTTPPort, cfg.GRPCPort)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected idempotency ttl: %s", cfg.IdempotencyTTL)
	}
	if cfg.ConsentTTL != 90*24*time.Hour {
		t.Fatalf("unexpected consent ttl: %s", cfg.ConsentTTL)
	}
	if cfg.PerTransactionLimitMinor != 100_000 || cfg.PeriodLimitMinor != 500_000 {
		t.Fatalf("unexpected limits: %d/%d", cfg.PerTransactionLimitMinor, cfg.PeriodLimitMinor)
	}
	if cfg.FxRateTable["USD/AED"] != 3_672_500 {
		t.Fatalf("unexpected USD/AED rate: %d", cfg.FxRateTable["USD/AED"])
	}
	if !cfg.AllowEphemeralJWT || !cfg.AllowDevKYCKey {
		t.Fatalf("dev fallbacks should default on")
	}
}

func TestLoadConfigReadsFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := strings.Join([]string{
		"service:",
		"  id: of-core-test",
		"  http_port: 8181",
		"dependencies:",
		"  postgres_url: postgres://file-host:5432/of",
		"  redis_url: redis://file-host:6379/0",
		"limits:",
		"  per_transaction_minor: 250000",
		"fx:",
		"  rates:",
		"    USD/AED: 3700000",
		"sanctions:",
		"  deny_tokens:",
		"    - TEST_BLOCKED",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OF_REDIS_URL", "redis://env-host:6379/1")
	t.Setenv("OF_VRP_PERIOD_LIMIT_MINOR", "750000")
	t.Setenv("OF_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("OF_QUOTE_VALIDITY_SECONDS", "120")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceID != "of-core-test" || cfg.HTTPPort != 8181 {
		t.Fatalf("file values not applied: %s/%d", cfg.ServiceID, cfg.HTTPPort)
	}
	if cfg.DatabaseURL != "postgres://file-host:5432/of" {
		t.Fatalf("unexpected database url: %s", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://env-host:6379/1" {
		t.Fatalf("env override should win over file: %s", cfg.RedisURL)
	}
	if cfg.PerTransactionLimitMinor != 250_000 || cfg.PeriodLimitMinor != 750_000 {
		t.Fatalf("unexpected limits: %d/%d", cfg.PerTransactionLimitMinor, cfg.PeriodLimitMinor)
	}
	if cfg.FxRateTable["USD/AED"] != 3_700_000 {
		t.Fatalf("file fx table not applied: %d", cfg.FxRateTable["USD/AED"])
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.QuoteValidity != 2*time.Minute {
		t.Fatalf("unexpected quote validity: %s", cfg.QuoteValidity)
	}
	if len(cfg.SanctionsDenyTokens) != 1 || cfg.SanctionsDenyTokens[0] != "TEST_BLOCKED" {
		t.Fatalf("unexpected deny tokens: %v", cfg.SanctionsDenyTokens)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Setenv("OF_REDIS_URL", "redis://localhost:6379/0")
	if _, err := LoadConfig(missing); err == nil {
		t.Fatalf("expected error for missing database url")
	}

	t.Setenv("OF_DB_URL", "postgres://localhost:5432/of")
	t.Setenv("OF_JWT_ALLOW_EPHEMERAL", "false")
	if _, err := LoadConfig(missing); err == nil {
		t.Fatalf("expected error for missing jwt key with ephemeral disabled")
	}

	t.Setenv("OF_JWT_ALLOW_EPHEMERAL", "true")
	t.Setenv("OF_KYC_ALLOW_DEV_KEY", "false")
	if _, err := LoadConfig(missing); err == nil {
		t.Fatalf("expected error for missing kyc key with dev key disabled")
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("service: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OF_DB_URL", "postgres://localhost:5432/of")
	t.Setenv("OF_REDIS_URL", "redis://localhost:6379/0")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
