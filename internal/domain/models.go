package domain

import "time"

type PaymentStatus string

const (
	PaymentAccepted PaymentStatus = "ACCEPTED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// Payment is one append-only ledger row of a variable recurring payment series.
// Cumulative period usage derives from ACCEPTED rows only.
type Payment struct {
	PaymentID      string
	ConsentID      string
	ParticipantID  string
	AmountMinor    int64
	Currency       string
	PeriodKey      string
	Status         PaymentStatus
	IdempotencyKey string
	CreatedAt      time.Time
}

type QuoteStatus string

const (
	QuoteQuoted QuoteStatus = "QUOTED"
	QuoteBooked QuoteStatus = "BOOKED"
	// QuoteExpired is derived lazily from ValidUntil, mirroring consent expiry.
	QuoteExpired QuoteStatus = "EXPIRED"
)

// Quote is a one-time-bookable FX quote. Rate is expressed in micro-units
// (3.672500 -> 3672500) so amount math stays integer.
type Quote struct {
	QuoteID          string
	ParticipantID    string
	BaseCurrency     string
	QuoteCurrency    string
	RateMicro        int64
	BaseAmountMinor  int64
	QuoteAmountMinor int64
	Status           QuoteStatus
	BookedDealID     string
	CreatedAt        time.Time
	ValidUntil       time.Time
}

// StatusAt reports the lazily derived quote status at the given instant.
func (q Quote) StatusAt(now time.Time) QuoteStatus {
	if q.Status == QuoteQuoted && now.After(q.ValidUntil) {
		return QuoteExpired
	}
	return q.Status
}

type PayeeAccountStatus string

const (
	PayeeAccountOpen   PayeeAccountStatus = "OPEN"
	PayeeAccountClosed PayeeAccountStatus = "CLOSED"
)

// PayeeAccount is a confirmation-of-payee registry entry.
type PayeeAccount struct {
	AccountIdentifier string
	SchemeName        string
	RegisteredName    string
	Status            PayeeAccountStatus
}

type AccountStatus string

const AccountOpened AccountStatus = "OPENED"

// Account is the result of a successful onboarding sequence.
type Account struct {
	AccountID         string
	CustomerReference string
	ParticipantID     string
	FullName          string
	IDNumber          string
	CountryCode       string
	Currency          string
	Status            AccountStatus
	OpenedAt          time.Time
}

// MetadataItem is one account-scoped record served by the metadata read path.
type MetadataItem struct {
	ItemID               string
	AccountID            string
	Description          string
	AmountMinor          int64
	Currency             string
	MerchantCategoryCode string
	FxBaseCurrency       string
	FxRateMicro          int64
	BookedAt             time.Time
}
