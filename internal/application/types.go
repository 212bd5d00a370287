package application

import (
	"time"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

type CreateConsentRequest struct {
	ParticipantID            string    `json:"-"`
	CustomerID               string    `json:"customer_id"`
	Scopes                   []string  `json:"scopes"`
	LinkedAccountIDs         []string  `json:"linked_account_ids"`
	Currency                 string    `json:"currency"`
	PeriodLimitMinor         int64     `json:"period_limit_minor"`
	PerTransactionLimitMinor int64     `json:"per_transaction_limit_minor"`
	ExpiresAt                time.Time `json:"expires_at"`
}

type ConsentView struct {
	ConsentID                string     `json:"consent_id"`
	ParticipantID            string     `json:"participant_id"`
	CustomerID               string     `json:"customer_id"`
	Scopes                   []string   `json:"scopes"`
	LinkedAccountIDs         []string   `json:"linked_account_ids"`
	Status                   string     `json:"status"`
	Active                   bool       `json:"active"`
	Currency                 string     `json:"currency"`
	PeriodLimitMinor         int64      `json:"period_limit_minor"`
	PerTransactionLimitMinor int64      `json:"per_transaction_limit_minor"`
	CreatedAt                time.Time  `json:"created_at"`
	ExpiresAt                time.Time  `json:"expires_at"`
	RevokedAt                *time.Time `json:"revoked_at,omitempty"`
	RevocationReason         string     `json:"revocation_reason,omitempty"`
}

type MetadataListQuery struct {
	ConsentID     string
	ParticipantID string
	AccountID     string
	FromDate      *time.Time
	ToDate        *time.Time
	Page          int
	PageSize      int
	IfNoneMatch   string
}

type MetadataItemView struct {
	ItemID               string    `json:"item_id"`
	AccountID            string    `json:"account_id"`
	Description          string    `json:"description"`
	AmountMinor          int64     `json:"amount_minor"`
	Currency             string    `json:"currency"`
	MerchantCategoryCode string    `json:"merchant_category_code,omitempty"`
	FxBaseCurrency       string    `json:"fx_base_currency,omitempty"`
	FxRateMicro          int64     `json:"fx_rate_micro,omitempty"`
	BookedAt             time.Time `json:"booked_at"`
}

type MetadataListResult struct {
	Items        []MetadataItemView `json:"items"`
	Page         int                `json:"page"`
	PageSize     int                `json:"page_size"`
	TotalRecords int                `json:"total_records"`
	CacheHit     bool               `json:"-"`
	ETag         string             `json:"-"`
	NotModified  bool               `json:"-"`
}

type MetadataItemResult struct {
	Item        MetadataItemView `json:"item"`
	CacheHit    bool             `json:"-"`
	ETag        string           `json:"-"`
	NotModified bool             `json:"-"`
}

type PaymentRequest struct {
	ParticipantID string `json:"-"`
	ConsentID     string `json:"consent_id"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	PeriodKey     string `json:"period_key"`
}

type PaymentView struct {
	PaymentID   string    `json:"payment_id"`
	ConsentID   string    `json:"consent_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	PeriodKey   string    `json:"period_key"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentResult struct {
	Payment           PaymentView `json:"payment"`
	IdempotencyReplay bool        `json:"idempotency_replay"`
}

type QuoteRequest struct {
	ParticipantID   string `json:"-"`
	BaseCurrency    string `json:"base_currency"`
	QuoteCurrency   string `json:"quote_currency"`
	BaseAmountMinor int64  `json:"base_amount_minor"`
}

type QuoteView struct {
	QuoteID          string    `json:"quote_id"`
	BaseCurrency     string    `json:"base_currency"`
	QuoteCurrency    string    `json:"quote_currency"`
	RateMicro        int64     `json:"rate_micro"`
	BaseAmountMinor  int64     `json:"base_amount_minor"`
	QuoteAmountMinor int64     `json:"quote_amount_minor"`
	Status           string    `json:"status"`
	BookedDealID     string    `json:"booked_deal_id,omitempty"`
	ValidUntil       time.Time `json:"valid_until"`
}

type DealResult struct {
	DealID            string    `json:"deal_id"`
	Quote             QuoteView `json:"quote"`
	IdempotencyReplay bool      `json:"idempotency_replay"`
}

type ConfirmPayeeRequest struct {
	AccountIdentifier string `json:"account_identifier"`
	SchemeName        string `json:"scheme_name"`
	Name              string `json:"name"`
}

type ConfirmPayeeResult struct {
	Result        domain.NameMatchResult `json:"result"`
	MatchedName   string                 `json:"matched_name,omitempty"`
	AccountStatus string                 `json:"account_status,omitempty"`
	ReasonCode    string                 `json:"reason_code,omitempty"`
}

type OpenAccountRequest struct {
	ParticipantID string `json:"-"`
	EncryptedKYC  string `json:"encrypted_kyc"`
	Currency      string `json:"currency"`
}

type AccountView struct {
	AccountID         string    `json:"account_id"`
	CustomerReference string    `json:"customer_reference"`
	FullName          string    `json:"full_name"`
	CountryCode       string    `json:"country_code"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	OpenedAt          time.Time `json:"opened_at"`
}

type OpenAccountResult struct {
	Account           AccountView `json:"account"`
	IdempotencyReplay bool        `json:"idempotency_replay"`
}

type ConsentVerification struct {
	Active    bool      `json:"active"`
	Status    string    `json:"status"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}
