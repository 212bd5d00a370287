package domain

import (
	"strings"
	"time"
)

type ConsentStatus string

const (
	ConsentPending    ConsentStatus = "PENDING"
	ConsentAuthorized ConsentStatus = "AUTHORIZED"
	ConsentRevoked    ConsentStatus = "REVOKED"
	// ConsentExpired is a derived view only. It is never written to the store;
	// StatusAt computes it lazily from ExpiresAt on every read.
	ConsentExpired ConsentStatus = "EXPIRED"
)

// Consent is the scoped, time-bounded grant a TPP holds over customer resources.
// All amounts are integer minor units of Currency.
type Consent struct {
	ConsentID                string
	ParticipantID            string
	CustomerID               string
	Scopes                   []string
	LinkedAccountIDs         []string
	Status                   ConsentStatus
	Currency                 string
	PeriodLimitMinor         int64
	PerTransactionLimitMinor int64
	CreatedAt                time.Time
	ExpiresAt                time.Time
	RevokedAt                *time.Time
	RevocationReason         string
}

// StatusAt reports the lazily derived lifecycle status at the given instant.
func (c Consent) StatusAt(now time.Time) ConsentStatus {
	if c.Status == ConsentAuthorized && !now.Before(c.ExpiresAt) {
		return ConsentExpired
	}
	return c.Status
}

// ActiveAt reports whether the consent authorizes new operations at the given instant.
func (c Consent) ActiveAt(now time.Time) bool {
	return c.StatusAt(now) == ConsentAuthorized
}

// HasScope performs a case-insensitive membership test against the granted
// permission tokens. Scopes are stored normalized upper-case.
func (c Consent) HasScope(permission string) bool {
	want := NormalizeScope(permission)
	for _, s := range c.Scopes {
		if s == want {
			return true
		}
	}
	return false
}

// LinksAccount reports whether the given resource id is bound to the consent.
func (c Consent) LinksAccount(accountID string) bool {
	for _, id := range c.LinkedAccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// NormalizeScope canonicalizes a permission token for storage and comparison.
func NormalizeScope(permission string) string {
	return strings.ToUpper(strings.TrimSpace(permission))
}

// ConsentContext is the read-only authorization context handed to protocol
// handlers after a successful guard check. The core never mutates it.
type ConsentContext struct {
	ConsentID        string
	ParticipantID    string
	Scopes           []string
	LinkedAccountIDs []string
	ExpiresAt        time.Time
}

// Context projects the consent into its downstream authorization view.
func (c Consent) Context() ConsentContext {
	scopes := make([]string, len(c.Scopes))
	copy(scopes, c.Scopes)
	linked := make([]string, len(c.LinkedAccountIDs))
	copy(linked, c.LinkedAccountIDs)
	return ConsentContext{
		ConsentID:        c.ConsentID,
		ParticipantID:    c.ParticipantID,
		Scopes:           scopes,
		LinkedAccountIDs: linked,
		ExpiresAt:        c.ExpiresAt,
	}
}
