package ports

import (
	"context"
	"time"
)

// AccessClaims is the validated token context the transport layer extracts
// before the core runs. Token issuance itself is an upstream collaborator.
type AccessClaims struct {
	Subject       string
	ParticipantID string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// TokenVerifier validates inbound access tokens (Bearer or DPoP typed).
type TokenVerifier interface {
	Verify(token string) (AccessClaims, error)
}

// PayloadDecrypter opens encrypted KYC payloads. A failure must abort the
// onboarding sequence before any screening or account creation runs.
type PayloadDecrypter interface {
	Decrypt(ctx context.Context, encrypted string) (string, error)
}

// SanctionsScreener checks extracted identity fields against a sanctions
// collaborator. Hit=true is a compliance violation, not an infrastructure error.
type SanctionsScreener interface {
	Screen(ctx context.Context, fullName, idNumber, countryCode string) (hit bool, err error)
}

// FxRateSource supplies quote rates in micro-units (1e-6) per base unit.
type FxRateSource interface {
	Rate(ctx context.Context, baseCurrency, quoteCurrency string) (int64, error)
}
