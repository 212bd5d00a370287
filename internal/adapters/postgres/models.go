package postgres

import (
	"time"

	"github.com/google/uuid"
)

type consentModel struct {
	ConsentID                string     `gorm:"column:consent_id;primaryKey"`
	ParticipantID            string     `gorm:"column:participant_id"`
	CustomerID               string     `gorm:"column:customer_id"`
	Scopes                   string     `gorm:"column:scopes"`
	LinkedAccountIDs         string     `gorm:"column:linked_account_ids"`
	Status                   string     `gorm:"column:status"`
	Currency                 string     `gorm:"column:currency"`
	PeriodLimitMinor         int64      `gorm:"column:period_limit_minor"`
	PerTransactionLimitMinor int64      `gorm:"column:per_transaction_limit_minor"`
	CreatedAt                time.Time  `gorm:"column:created_at"`
	ExpiresAt                time.Time  `gorm:"column:expires_at"`
	RevokedAt                *time.Time `gorm:"column:revoked_at"`
	RevocationReason         string     `gorm:"column:revocation_reason"`
}

func (consentModel) TableName() string { return "consents" }

type paymentModel struct {
	PaymentID      string    `gorm:"column:payment_id;primaryKey"`
	ConsentID      string    `gorm:"column:consent_id"`
	ParticipantID  string    `gorm:"column:participant_id"`
	AmountMinor    int64     `gorm:"column:amount_minor"`
	Currency       string    `gorm:"column:currency"`
	PeriodKey      string    `gorm:"column:period_key"`
	Status         string    `gorm:"column:status"`
	IdempotencyKey string    `gorm:"column:idempotency_key"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (paymentModel) TableName() string { return "vrp_payments" }

type quoteModel struct {
	QuoteID          string     `gorm:"column:quote_id;primaryKey"`
	ParticipantID    string     `gorm:"column:participant_id"`
	BaseCurrency     string     `gorm:"column:base_currency"`
	QuoteCurrency    string     `gorm:"column:quote_currency"`
	RateMicro        int64      `gorm:"column:rate_micro"`
	BaseAmountMinor  int64      `gorm:"column:base_amount_minor"`
	QuoteAmountMinor int64      `gorm:"column:quote_amount_minor"`
	Status           string     `gorm:"column:status"`
	BookedDealID     *string    `gorm:"column:booked_deal_id"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	ValidUntil       time.Time  `gorm:"column:valid_until"`
	BookedAt         *time.Time `gorm:"column:booked_at"`
}

func (quoteModel) TableName() string { return "fx_quotes" }

type payeeAccountModel struct {
	AccountIdentifier string `gorm:"column:account_identifier;primaryKey"`
	SchemeName        string `gorm:"column:scheme_name;primaryKey"`
	RegisteredName    string `gorm:"column:registered_name"`
	Status            string `gorm:"column:status"`
}

func (payeeAccountModel) TableName() string { return "payee_accounts" }

type accountModel struct {
	AccountID         string    `gorm:"column:account_id;primaryKey"`
	CustomerReference string    `gorm:"column:customer_reference"`
	ParticipantID     string    `gorm:"column:participant_id"`
	FullName          string    `gorm:"column:full_name"`
	IDNumber          string    `gorm:"column:id_number"`
	CountryCode       string    `gorm:"column:country_code"`
	Currency          string    `gorm:"column:currency"`
	Status            string    `gorm:"column:status"`
	OpenedAt          time.Time `gorm:"column:opened_at"`
}

func (accountModel) TableName() string { return "accounts" }

type metadataItemModel struct {
	ItemID               string    `gorm:"column:item_id;primaryKey"`
	AccountID            string    `gorm:"column:account_id"`
	Description          string    `gorm:"column:description"`
	AmountMinor          int64     `gorm:"column:amount_minor"`
	Currency             string    `gorm:"column:currency"`
	MerchantCategoryCode string    `gorm:"column:merchant_category_code"`
	FxBaseCurrency       string    `gorm:"column:fx_base_currency"`
	FxRateMicro          int64     `gorm:"column:fx_rate_micro"`
	BookedAt             time.Time `gorm:"column:booked_at"`
}

func (metadataItemModel) TableName() string { return "metadata_items" }

type idempotencyModel struct {
	IdempotencyKey  string    `gorm:"column:idempotency_key;primaryKey"`
	ParticipantID   string    `gorm:"column:participant_id;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResultReference string    `gorm:"column:result_reference"`
	Status          string    `gorm:"column:status"`
	ResponseCode    int       `gorm:"column:response_code"`
	ResponseBody    *string   `gorm:"column:response_body;type:jsonb"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "idempotency_records" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "outbox_events" }
