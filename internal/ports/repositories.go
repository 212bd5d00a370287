package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

// ConsentRepository persists consent grants. The core treats stored consents
// as read-only authorization input; lifecycle updates go through Update.
type ConsentRepository interface {
	Create(ctx context.Context, consent domain.Consent) error
	GetByID(ctx context.Context, consentID string) (domain.Consent, error)
	Update(ctx context.Context, consent domain.Consent) error
}

// PaymentRepository is the append-only VRP ledger plus the cumulative read
// the limit enforcer needs. SumAccepted must only count ACCEPTED rows.
type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) error
	GetByID(ctx context.Context, paymentID string) (domain.Payment, error)
	SumAccepted(ctx context.Context, consentID, periodKey string) (int64, error)
}

// QuoteRepository persists FX quotes. Book must transition QUOTED to BOOKED
// exactly once; a second attempt returns domain.ErrConflict.
type QuoteRepository interface {
	Create(ctx context.Context, quote domain.Quote) error
	GetByID(ctx context.Context, quoteID string) (domain.Quote, error)
	Book(ctx context.Context, quoteID, dealID string, at time.Time) error
}

// PayeeDirectory resolves confirmation-of-payee registry entries.
type PayeeDirectory interface {
	Lookup(ctx context.Context, accountIdentifier, schemeName string) (domain.PayeeAccount, error)
}

// AccountRepository stores accounts created by the onboarding flow.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, accountID string) (domain.Account, error)
}

// MetadataSource is the external read port behind the cached metadata path.
type MetadataSource interface {
	ListByAccount(ctx context.Context, accountID string) ([]domain.MetadataItem, error)
	GetByID(ctx context.Context, itemID string) (domain.MetadataItem, error)
}

// IdempotencyRecord tracks a previously accepted mutating request for one
// participant. The stored fingerprint is immutable once written.
type IdempotencyRecord struct {
	IdempotencyKey  string
	ParticipantID   string
	RequestHash     string
	ResultReference string
	Status          string
	ResponseCode    int
	ResponseBody    []byte
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics keyed by
// (idempotency key, participant). Reserve must be atomic against concurrent
// first attempts: the loser receives domain.ErrConflict and re-reads. Delete
// removes a reservation whose operation was rejected; only successful
// attempts leave a durable record.
type IdempotencyRepository interface {
	Get(ctx context.Context, key, participantID string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, participantID, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key, participantID, resultReference string, responseCode int, responseBody []byte, at time.Time) error
	Delete(ctx context.Context, key, participantID string) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is durable outbox state including retry/claim metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
// The API process only enqueues; the worker claims, publishes, and marks.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
