package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the platform core.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string

	JWTPublicKeyPEM   string
	AllowEphemeralJWT bool

	KYCKeyBase64   string
	AllowDevKYCKey bool

	SanctionsDenyTokens []string

	CacheTTL       time.Duration
	IdempotencyTTL time.Duration
	QuoteValidity  time.Duration
	ConsentTTL     time.Duration

	PerTransactionLimitMinor int64
	PeriodLimitMinor         int64

	LockLeaseTTL    time.Duration
	LockAcquireWait time.Duration

	FxRateTable map[string]int64

	DefaultPageSize int
	MaxPageSize     int

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	IdempotencyReapInterval  time.Duration
	IdempotencyReapBatchSize int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Limits struct {
		PerTransactionMinor int64 `yaml:"per_transaction_minor"`
		PeriodMinor         int64 `yaml:"period_minor"`
	} `yaml:"limits"`
	Fx struct {
		// Micro-units (1e-6) per base unit, keyed "BASE/QUOTE".
		Rates map[string]int64 `yaml:"rates"`
	} `yaml:"fx"`
	Sanctions struct {
		DenyTokens []string `yaml:"deny_tokens"`
	} `yaml:"sanctions"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                "Open-Finance-Platform-Core",
		HTTPPort:                 8080,
		GRPCPort:                 9090,
		AllowEphemeralJWT:        true,
		AllowDevKYCKey:           true,
		CacheTTL:                 30 * time.Second,
		IdempotencyTTL:           24 * time.Hour,
		QuoteValidity:            5 * time.Minute,
		ConsentTTL:               90 * 24 * time.Hour,
		PerTransactionLimitMinor: 100_000,
		PeriodLimitMinor:         500_000,
		LockLeaseTTL:             5 * time.Second,
		LockAcquireWait:          2 * time.Second,
		FxRateTable: map[string]int64{
			"USD/AED": 3_672_500,
			"USD/EUR": 920_000,
			"EUR/USD": 1_087_000,
			"GBP/USD": 1_270_000,
			"USD/SAR": 3_750_000,
		},
		DefaultPageSize:          100,
		MaxPageSize:              100,
		MaxDBConns:               20,
		OutboxPollInterval:       2 * time.Second,
		OutboxBatchSize:          100,
		OutboxClaimTTL:           30 * time.Second,
		OutboxMaxRetries:         5,
		IdempotencyReapInterval:  time.Minute,
		IdempotencyReapBatchSize: 500,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Limits.PerTransactionMinor > 0 {
			cfg.PerTransactionLimitMinor = f.Limits.PerTransactionMinor
		}
		if f.Limits.PeriodMinor > 0 {
			cfg.PeriodLimitMinor = f.Limits.PeriodMinor
		}
		if len(f.Fx.Rates) > 0 {
			cfg.FxRateTable = f.Fx.Rates
		}
		if len(f.Sanctions.DenyTokens) > 0 {
			cfg.SanctionsDenyTokens = f.Sanctions.DenyTokens
		}
	}

	cfg.DatabaseURL = envOrDefault("OF_DB_URL", envOrDefault("OF_POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("OF_REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("OF_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.JWTPublicKeyPEM = envOrDefault("OF_JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.AllowEphemeralJWT = envBool("OF_JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.KYCKeyBase64 = envOrDefault("OF_KYC_KEY_BASE64", cfg.KYCKeyBase64)
	cfg.AllowDevKYCKey = envBool("OF_KYC_ALLOW_DEV_KEY", cfg.AllowDevKYCKey)
	cfg.SanctionsDenyTokens = envCSV("OF_SANCTIONS_DENY_TOKENS", cfg.SanctionsDenyTokens)

	cfg.HTTPPort = envInt("OF_HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("OF_GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("OF_DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.DefaultPageSize = envInt("OF_DEFAULT_PAGE_SIZE", cfg.DefaultPageSize)
	cfg.MaxPageSize = envInt("OF_MAX_PAGE_SIZE", cfg.MaxPageSize)

	cfg.PerTransactionLimitMinor = envInt64("OF_VRP_PER_TX_LIMIT_MINOR", cfg.PerTransactionLimitMinor)
	cfg.PeriodLimitMinor = envInt64("OF_VRP_PERIOD_LIMIT_MINOR", cfg.PeriodLimitMinor)

	cfg.CacheTTL = time.Duration(envInt("OF_CACHE_TTL_SECONDS", int(cfg.CacheTTL.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("OF_IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.QuoteValidity = time.Duration(envInt("OF_QUOTE_VALIDITY_SECONDS", int(cfg.QuoteValidity.Seconds()))) * time.Second
	cfg.ConsentTTL = time.Duration(envInt("OF_CONSENT_TTL_DAYS", int(cfg.ConsentTTL.Hours()/24))) * 24 * time.Hour
	cfg.LockLeaseTTL = time.Duration(envInt("OF_LOCK_LEASE_MILLIS", int(cfg.LockLeaseTTL.Milliseconds()))) * time.Millisecond
	cfg.LockAcquireWait = time.Duration(envInt("OF_LOCK_WAIT_MILLIS", int(cfg.LockAcquireWait.Milliseconds()))) * time.Millisecond
	cfg.OutboxPollInterval = time.Duration(envInt("OF_OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OF_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OF_OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OF_OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.IdempotencyReapInterval = time.Duration(envInt("OF_IDEMPOTENCY_REAP_SECONDS", int(cfg.IdempotencyReapInterval.Seconds()))) * time.Second
	cfg.IdempotencyReapBatchSize = envInt("OF_IDEMPOTENCY_REAP_BATCH_SIZE", cfg.IdempotencyReapBatchSize)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing OF_DB_URL/OF_POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing OF_REDIS_URL")
	}
	if cfg.JWTPublicKeyPEM == "" && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing OF_JWT_PUBLIC_KEY_PEM")
	}
	if cfg.KYCKeyBase64 == "" && !cfg.AllowDevKYCKey {
		return Config{}, fmt.Errorf("missing OF_KYC_KEY_BASE64")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envInt64(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
