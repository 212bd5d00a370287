package unit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/rates"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/security"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func defaultTestConfig() application.Config {
	return application.Config{
		CacheTTL:                        30 * time.Second,
		IdempotencyTTL:                  24 * time.Hour,
		QuoteValidity:                   5 * time.Minute,
		DefaultConsentTTL:               90 * 24 * time.Hour,
		DefaultPeriodLimitMinor:         500_000,
		DefaultPerTransactionLimitMinor: 100_000,
		DefaultPageSize:                 100,
		MaxPageSize:                     100,
	}
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	consents := &fakeConsents{byID: map[string]domain.Consent{}}
	payments := &fakePayments{byID: map[string]domain.Payment{}}
	quotes := &fakeQuotes{byID: map[string]domain.Quote{}}
	payees := &fakePayees{byKey: map[string]domain.PayeeAccount{}}
	accounts := &fakeAccounts{byID: map[string]domain.Account{}}
	metadata := &fakeMetadata{}
	idem := &fakeIdempotency{records: map[string]ports.IdempotencyRecord{}}
	outbox := &fakeOutbox{}
	cache := &fakeCache{entries: map[string]cacheEntry{}, nowFn: clock.Now}
	locker := &fakeLocker{}

	key, err := security.NewRandomKYCKey()
	if err != nil {
		panic(err)
	}
	decrypter, err := security.NewKYCDecrypter(key)
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(application.Dependencies{
		Config:      cfg,
		Consents:    consents,
		Payments:    payments,
		Quotes:      quotes,
		Payees:      payees,
		Accounts:    accounts,
		Metadata:    metadata,
		Idempotency: idem,
		Outbox:      outbox,
		Cache:       cache,
		Locker:      locker,
		Decrypter:   decrypter,
		Screener:    security.NewDenylistScreener(logger, nil),
		Rates: rates.NewStaticRateSource(map[string]int64{
			"USD/AED": 3_672_500,
			"USD/EUR": 920_000,
		}),
		Logger: logger,
		Now:    clock.Now,
	})

	return &fixture{
		service:   svc,
		clock:     clock,
		consents:  consents,
		payments:  payments,
		quotes:    quotes,
		payees:    payees,
		accounts:  accounts,
		metadata:  metadata,
		idem:      idem,
		outbox:    outbox,
		cache:     cache,
		decrypter: decrypter,
	}
}

type fixture struct {
	service   *application.Service
	clock     *fakeClock
	consents  *fakeConsents
	payments  *fakePayments
	quotes    *fakeQuotes
	payees    *fakePayees
	accounts  *fakeAccounts
	metadata  *fakeMetadata
	idem      *fakeIdempotency
	outbox    *fakeOutbox
	cache     *fakeCache
	decrypter *security.KYCDecrypter
}

// authorizedConsent seeds an AUTHORIZED consent and returns its id.
func (f *fixture) authorizedConsent(participantID string, scopes []string, linkedAccounts []string) string {
	now := f.clock.Now()
	consent := domain.Consent{
		ConsentID:                fmt.Sprintf("CONS-seed-%d", f.consents.count()+1),
		ParticipantID:            participantID,
		CustomerID:               "CUST-1",
		Scopes:                   scopes,
		LinkedAccountIDs:         linkedAccounts,
		Status:                   domain.ConsentAuthorized,
		Currency:                 "AED",
		PeriodLimitMinor:         500_000,
		PerTransactionLimitMinor: 100_000,
		CreatedAt:                now,
		ExpiresAt:                now.Add(90 * 24 * time.Hour),
	}
	_ = f.consents.Create(context.Background(), consent)
	return consent.ConsentID
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeConsents struct {
	mu   sync.Mutex
	byID map[string]domain.Consent
}

func (f *fakeConsents) Create(_ context.Context, consent domain.Consent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[consent.ConsentID]; ok {
		return domain.ErrConflict
	}
	f.byID[consent.ConsentID] = consent
	return nil
}

func (f *fakeConsents) GetByID(_ context.Context, consentID string) (domain.Consent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[consentID]
	if !ok {
		return domain.Consent{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeConsents) Update(_ context.Context, consent domain.Consent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[consent.ConsentID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[consent.ConsentID] = consent
	return nil
}

func (f *fakeConsents) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakePayments struct {
	mu   sync.Mutex
	byID map[string]domain.Payment
}

func (f *fakePayments) Create(_ context.Context, payment domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[payment.PaymentID]; ok {
		return domain.ErrConflict
	}
	f.byID[payment.PaymentID] = payment
	return nil
}

func (f *fakePayments) GetByID(_ context.Context, paymentID string) (domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[paymentID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePayments) SumAccepted(_ context.Context, consentID, periodKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, p := range f.byID {
		if p.ConsentID == consentID && p.PeriodKey == periodKey && p.Status == domain.PaymentAccepted {
			sum += p.AmountMinor
		}
	}
	return sum, nil
}

func (f *fakePayments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeQuotes struct {
	mu   sync.Mutex
	byID map[string]domain.Quote
}

func (f *fakeQuotes) Create(_ context.Context, quote domain.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[quote.QuoteID]; ok {
		return domain.ErrConflict
	}
	f.byID[quote.QuoteID] = quote
	return nil
}

func (f *fakeQuotes) GetByID(_ context.Context, quoteID string) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[quoteID]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func (f *fakeQuotes) Book(_ context.Context, quoteID, dealID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[quoteID]
	if !ok {
		return domain.ErrNotFound
	}
	if q.Status != domain.QuoteQuoted {
		return domain.ErrConflict
	}
	q.Status = domain.QuoteBooked
	q.BookedDealID = dealID
	f.byID[quoteID] = q
	return nil
}

type fakePayees struct {
	mu    sync.Mutex
	byKey map[string]domain.PayeeAccount
}

func (f *fakePayees) add(account domain.PayeeAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[account.AccountIdentifier+"|"+account.SchemeName] = account
}

func (f *fakePayees) Lookup(_ context.Context, accountIdentifier, schemeName string) (domain.PayeeAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byKey[accountIdentifier+"|"+schemeName]
	if !ok {
		return domain.PayeeAccount{}, domain.ErrNotFound
	}
	return a, nil
}

type fakeAccounts struct {
	mu   sync.Mutex
	byID map[string]domain.Account
}

func (f *fakeAccounts) Create(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[account.AccountID]; ok {
		return domain.ErrConflict
	}
	f.byID[account.AccountID] = account
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, accountID string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeMetadata struct {
	mu    sync.Mutex
	items []domain.MetadataItem
	lists int
}

func (f *fakeMetadata) add(item domain.MetadataItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

func (f *fakeMetadata) ListByAccount(_ context.Context, accountID string) ([]domain.MetadataItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var out []domain.MetadataItem
	for _, item := range f.items {
		if item.AccountID == accountID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeMetadata) GetByID(_ context.Context, itemID string) (domain.MetadataItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ItemID == itemID {
			return item, nil
		}
	}
	return domain.MetadataItem{}, domain.ErrNotFound
}

func (f *fakeMetadata) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func idemKey(key, participantID string) string { return key + "|" + participantID }

func (f *fakeIdempotency) Get(_ context.Context, key, participantID string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[idemKey(key, participantID)]
	if !ok {
		return nil, nil
	}
	copied := rec
	return &copied, nil
}

func (f *fakeIdempotency) Reserve(_ context.Context, key, participantID, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := idemKey(key, participantID)
	if _, ok := f.records[k]; ok {
		return domain.ErrConflict
	}
	f.records[k] = ports.IdempotencyRecord{
		IdempotencyKey: key,
		ParticipantID:  participantID,
		RequestHash:    requestHash,
		Status:         "PENDING",
		ExpiresAt:      expiresAt,
	}
	return nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key, participantID, resultReference string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := idemKey(key, participantID)
	rec, ok := f.records[k]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "COMPLETED"
	rec.ResultReference = resultReference
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	f.records[k] = rec
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key, participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, idemKey(key, participantID))
	return nil
}

func (f *fakeIdempotency) DeleteExpired(_ context.Context, before time.Time, limit int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for k, rec := range f.records {
		if int(deleted) >= limit {
			break
		}
		if rec.ExpiresAt.Before(before) {
			delete(f.records, k)
			deleted++
		}
	}
	return deleted, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	nowFn   func() time.Time
	gets    int
	puts    int
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	e, ok := f.entries[key]
	if !ok || f.nowFn().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (f *fakeCache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[key] = cacheEntry{value: value, expiresAt: f.nowFn().Add(ttl)}
	return nil
}

// fakeLocker serializes callers with a plain mutex, mirroring the per-consent
// critical section the Redis lease provides in production.
type fakeLocker struct {
	mu sync.Mutex
}

func (f *fakeLocker) WithConsentLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}
