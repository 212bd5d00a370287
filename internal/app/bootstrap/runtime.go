package bootstrap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/cache"
	eventadapter "github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/events"
	grpcadapter "github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/grpc"
	httpadapter "github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/http"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/postgres"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/rates"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/security"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	reaper     *eventadapter.IdempotencyReaper
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping open finance platform core", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, logger, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, logger, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	var verifier ports.TokenVerifier
	if cfg.JWTPublicKeyPEM != "" {
		verifier, err = security.NewJWTVerifier(cfg.JWTPublicKeyPEM)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init jwt verifier: %w", err)
		}
	} else {
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		verifier, _, err = security.NewEphemeralVerifierAndSigner()
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral jwt verifier: %w", err)
		}
	}

	var kycKey []byte
	if cfg.KYCKeyBase64 != "" {
		kycKey, err = base64.StdEncoding.DecodeString(cfg.KYCKeyBase64)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("decode kyc key: %w", err)
		}
	} else {
		logger.Warn("using random KYC key for local/dev runtime")
		kycKey, err = security.NewRandomKYCKey()
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("generate kyc key: %w", err)
		}
	}
	decrypter, err := security.NewKYCDecrypter(kycKey)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init kyc decrypter: %w", err)
	}

	var publisher ports.EventPublisher
	closePublisher := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, nil)
		if pubErr != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", pubErr)
		}
		publisher = kafkaPub
		closePublisher = func() { _ = kafkaPub.Close() }
	} else {
		logger.Warn("no kafka brokers configured, outbox events will be logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			CacheTTL:                        cfg.CacheTTL,
			IdempotencyTTL:                  cfg.IdempotencyTTL,
			QuoteValidity:                   cfg.QuoteValidity,
			DefaultConsentTTL:               cfg.ConsentTTL,
			DefaultPeriodLimitMinor:         cfg.PeriodLimitMinor,
			DefaultPerTransactionLimitMinor: cfg.PerTransactionLimitMinor,
			DefaultPageSize:                 cfg.DefaultPageSize,
			MaxPageSize:                     cfg.MaxPageSize,
		},
		Consents:    repos.Consents,
		Payments:    repos.Payments,
		Quotes:      repos.Quotes,
		Payees:      repos.Payees,
		Accounts:    repos.Accounts,
		Metadata:    repos.Metadata,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Cache:       cacheadapter.NewRedisCacheStore(redisClient),
		Locker:      cacheadapter.NewRedisConsentLocker(redisClient, cfg.LockLeaseTTL, cfg.LockAcquireWait),
		Decrypter:   decrypter,
		Screener:    security.NewDenylistScreener(logger, cfg.SanctionsDenyTokens),
		Rates:       rates.NewStaticRateSource(cfg.FxRateTable),
		Logger:      logger,
	})

	ready := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	handler := httpadapter.NewHandler(svc, verifier, ready)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewConsentInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		closePublisher()
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	reaper := eventadapter.NewIdempotencyReaper(
		logger,
		repos.Idempotency,
		cfg.IdempotencyReapInterval,
		cfg.IdempotencyReapBatchSize,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		reaper:     reaper,
		cleanupFn: func(ctx context.Context) {
			closePublisher()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.reaper.Run(ctx)
	}()

	err := r.outbox.Run(ctx)
	wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
