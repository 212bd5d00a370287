package application

import (
	"log/slog"
	"time"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// Config carries the tunable limits and windows of the protocol engine.
// All money values are integer minor units.
type Config struct {
	CacheTTL                        time.Duration
	IdempotencyTTL                  time.Duration
	QuoteValidity                   time.Duration
	DefaultConsentTTL               time.Duration
	DefaultPeriodLimitMinor         int64
	DefaultPerTransactionLimitMinor int64
	DefaultPageSize                 int
	MaxPageSize                     int
}

// Service orchestrates the consent-scoped protocol engine: authorization
// guard, idempotency coordinator, limit enforcer, and cache layer, consumed
// by the five use-case handlers. All collaborators sit behind narrow ports.
type Service struct {
	cfg         Config
	consents    ports.ConsentRepository
	payments    ports.PaymentRepository
	quotes      ports.QuoteRepository
	payees      ports.PayeeDirectory
	accounts    ports.AccountRepository
	metadata    ports.MetadataSource
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository
	cache       *responseCache
	locker      ports.ConsentLocker
	decrypter   ports.PayloadDecrypter
	screener    ports.SanctionsScreener
	rates       ports.FxRateSource
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Consents    ports.ConsentRepository
	Payments    ports.PaymentRepository
	Quotes      ports.QuoteRepository
	Payees      ports.PayeeDirectory
	Accounts    ports.AccountRepository
	Metadata    ports.MetadataSource
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
	Cache       ports.CacheStore
	Locker      ports.ConsentLocker
	Decrypter   ports.PayloadDecrypter
	Screener    ports.SanctionsScreener
	Rates       ports.FxRateSource
	Logger      *slog.Logger
	// Now overrides the service clock; tests use it to drive lazy expiry.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.QuoteValidity <= 0 {
		cfg.QuoteValidity = 5 * time.Minute
	}
	if cfg.DefaultConsentTTL <= 0 {
		cfg.DefaultConsentTTL = 90 * 24 * time.Hour
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 100
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}

	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:         cfg,
		consents:    deps.Consents,
		payments:    deps.Payments,
		quotes:      deps.Quotes,
		payees:      deps.Payees,
		accounts:    deps.Accounts,
		metadata:    deps.Metadata,
		idempotency: deps.Idempotency,
		outbox:      deps.Outbox,
		cache:       newResponseCache(deps.Cache, cfg.CacheTTL, logger.With("layer", "application")),
		locker:      deps.Locker,
		decrypter:   deps.Decrypter,
		screener:    deps.Screener,
		rates:       deps.Rates,
		logger:      logger.With("layer", "application"),
		nowFn:       nowFn,
	}
}
