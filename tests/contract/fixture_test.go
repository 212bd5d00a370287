package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	httpadapter "github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/http"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/rates"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/adapters/security"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// contractFixture wires the real HTTP adapter and token verifier over
// in-memory stores so transport behavior is exercised end to end.
type contractFixture struct {
	service   *application.Service
	router    http.Handler
	signer    *security.DevTokenSigner
	consents  *memConsents
	payments  *memPayments
	metadata  *memMetadata
	payees    *memPayees
	decrypter *security.KYCDecrypter
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	verifier, signer, err := security.NewEphemeralVerifierAndSigner()
	if err != nil {
		t.Fatalf("ephemeral verifier: %v", err)
	}
	key, err := security.NewRandomKYCKey()
	if err != nil {
		t.Fatalf("kyc key: %v", err)
	}
	decrypter, err := security.NewKYCDecrypter(key)
	if err != nil {
		t.Fatalf("kyc decrypter: %v", err)
	}

	consents := &memConsents{byID: map[string]domain.Consent{}}
	payments := &memPayments{byID: map[string]domain.Payment{}}
	metadata := &memMetadata{}
	payees := &memPayees{byKey: map[string]domain.PayeeAccount{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := application.NewService(application.Dependencies{
		Consents:    consents,
		Payments:    payments,
		Quotes:      &memQuotes{byID: map[string]domain.Quote{}},
		Payees:      payees,
		Accounts:    &memAccounts{byID: map[string]domain.Account{}},
		Metadata:    metadata,
		Idempotency: &memIdempotency{records: map[string]ports.IdempotencyRecord{}},
		Outbox:      memOutbox{},
		Cache:       &memCache{entries: map[string][]byte{}},
		Locker:      &memLocker{},
		Decrypter:   decrypter,
		Screener:    security.NewDenylistScreener(logger, nil),
		Rates: rates.NewStaticRateSource(map[string]int64{
			"USD/AED": 3_672_500,
		}),
		Logger: logger,
	})

	return &contractFixture{
		service:   svc,
		router:    httpadapter.NewRouter(httpadapter.NewHandler(svc, verifier, nil)),
		signer:    signer,
		consents:  consents,
		payments:  payments,
		metadata:  metadata,
		payees:    payees,
		decrypter: decrypter,
	}
}

func (f *contractFixture) token(t *testing.T, participantID string) string {
	t.Helper()
	token, err := f.signer.Sign("sub-"+participantID, participantID, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// do performs an authenticated request with the standard FAPI headers set.
func (f *contractFixture) do(t *testing.T, method, target, participantID string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("x-fapi-interaction-id", uuid.NewString())
	req.Header.Set("Authorization", "Bearer "+f.token(t, participantID))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func decodeErrorCode(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, res.Body.String())
	}
	return body.Error.Code
}

// seedAuthorizedConsent writes an AUTHORIZED consent directly to the store.
func (f *contractFixture) seedAuthorizedConsent(consentID, participantID string, scopes, linkedAccounts []string) {
	now := time.Now().UTC()
	_ = f.consents.Create(context.Background(), domain.Consent{
		ConsentID:                consentID,
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
	})
}

type memConsents struct {
	mu   sync.Mutex
	byID map[string]domain.Consent
}

func (m *memConsents) Create(_ context.Context, consent domain.Consent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[consent.ConsentID]; ok {
		return domain.ErrConflict
	}
	m.byID[consent.ConsentID] = consent
	return nil
}

func (m *memConsents) GetByID(_ context.Context, consentID string) (domain.Consent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[consentID]
	if !ok {
		return domain.Consent{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memConsents) Update(_ context.Context, consent domain.Consent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[consent.ConsentID]; !ok {
		return domain.ErrNotFound
	}
	m.byID[consent.ConsentID] = consent
	return nil
}

type memPayments struct {
	mu   sync.Mutex
	byID map[string]domain.Payment
}

func (m *memPayments) Create(_ context.Context, payment domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[payment.PaymentID]; ok {
		return domain.ErrConflict
	}
	m.byID[payment.PaymentID] = payment
	return nil
}

func (m *memPayments) GetByID(_ context.Context, paymentID string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[paymentID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPayments) SumAccepted(_ context.Context, consentID, periodKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, p := range m.byID {
		if p.ConsentID == consentID && p.PeriodKey == periodKey && p.Status == domain.PaymentAccepted {
			sum += p.AmountMinor
		}
	}
	return sum, nil
}

type memQuotes struct {
	mu   sync.Mutex
	byID map[string]domain.Quote
}

func (m *memQuotes) Create(_ context.Context, quote domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[quote.QuoteID] = quote
	return nil
}

func (m *memQuotes) GetByID(_ context.Context, quoteID string) (domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.byID[quoteID]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func (m *memQuotes) Book(_ context.Context, quoteID, dealID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.byID[quoteID]
	if !ok {
		return domain.ErrNotFound
	}
	if q.Status != domain.QuoteQuoted {
		return domain.ErrConflict
	}
	q.Status = domain.QuoteBooked
	q.BookedDealID = dealID
	m.byID[quoteID] = q
	return nil
}

type memPayees struct {
	mu    sync.Mutex
	byKey map[string]domain.PayeeAccount
}

func (m *memPayees) add(account domain.PayeeAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[account.AccountIdentifier+"|"+account.SchemeName] = account
}

func (m *memPayees) Lookup(_ context.Context, accountIdentifier, schemeName string) (domain.PayeeAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byKey[accountIdentifier+"|"+schemeName]
	if !ok {
		return domain.PayeeAccount{}, domain.ErrNotFound
	}
	return a, nil
}

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]domain.Account
}

func (m *memAccounts) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[account.AccountID] = account
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, accountID string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

type memMetadata struct {
	mu    sync.Mutex
	items []domain.MetadataItem
}

func (m *memMetadata) add(item domain.MetadataItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
}

func (m *memMetadata) ListByAccount(_ context.Context, accountID string) ([]domain.MetadataItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MetadataItem
	for _, item := range m.items {
		if item.AccountID == accountID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memMetadata) GetByID(_ context.Context, itemID string) (domain.MetadataItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ItemID == itemID {
			return item, nil
		}
	}
	return domain.MetadataItem{}, domain.ErrNotFound
}

type memIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (m *memIdempotency) Get(_ context.Context, key, participantID string) (*ports.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key+"|"+participantID]
	if !ok {
		return nil, nil
	}
	copied := rec
	return &copied, nil
}

func (m *memIdempotency) Reserve(_ context.Context, key, participantID, requestHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key + "|" + participantID
	if _, ok := m.records[k]; ok {
		return domain.ErrConflict
	}
	m.records[k] = ports.IdempotencyRecord{
		IdempotencyKey: key,
		ParticipantID:  participantID,
		RequestHash:    requestHash,
		Status:         "PENDING",
		ExpiresAt:      expiresAt,
	}
	return nil
}

func (m *memIdempotency) Complete(_ context.Context, key, participantID, resultReference string, responseCode int, responseBody []byte, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key + "|" + participantID
	rec, ok := m.records[k]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "COMPLETED"
	rec.ResultReference = resultReference
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	m.records[k] = rec
	return nil
}

func (m *memIdempotency) Delete(_ context.Context, key, participantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key+"|"+participantID)
	return nil
}

func (m *memIdempotency) DeleteExpired(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

type memOutbox struct{}

func (memOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }
func (memOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (memOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (memOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (memOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

type memLocker struct {
	mu sync.Mutex
}

func (m *memLocker) WithConsentLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}
