package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// beginIdempotent is the lookup/compare/reserve half of the idempotency
// coordinator. It returns the stored record when the call is a replay of a
// completed request, or nil once a fresh reservation is held and the caller
// may execute the operation (then finishIdempotent).
//
// A lost reservation race is resolved first-committer-wins: the loser
// re-reads and behaves as a replay or conflict rather than double-executing.
func (s *Service) beginIdempotent(ctx context.Context, key, participantID, fingerprint string) (*ports.IdempotencyRecord, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", domain.ErrRequestValidation)
	}

	now := s.nowFn()
	for attempt := 0; attempt < 2; attempt++ {
		rec, err := s.idempotency.Get(ctx, key, participantID)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if rec != nil && rec.ExpiresAt.After(now) {
			if rec.RequestHash != fingerprint {
				return nil, fmt.Errorf("%w: Idempotency conflict", domain.ErrIdempotencyConflict)
			}
			if rec.Status != idempotencyCompleted {
				// A reservation with no result yet: either a concurrent
				// in-flight request or a crash before Complete. The record is
				// not overwritten; the client retries after the window.
				return nil, fmt.Errorf("%w: request with this idempotency key is still in progress", domain.ErrConflict)
			}
			return rec, nil
		}

		err = s.idempotency.Reserve(ctx, key, participantID, fingerprint, now.Add(s.cfg.IdempotencyTTL))
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("idempotency reserve: %w", err)
		}
		// Lost the first-attempt race; re-read and treat as replay/conflict.
	}
	return nil, fmt.Errorf("%w: idempotency record unavailable", domain.ErrUnavailable)
}

// finishIdempotent persists the result reference and response snapshot after
// the wrapped operation succeeded. Failures here are logged, not surfaced: the
// operation itself committed, and a crash between execute and persist is the
// documented scope boundary of client-level (not crash-level) exactly-once.
func (s *Service) finishIdempotent(ctx context.Context, key, participantID, resultReference string, responseCode int, responseBody []byte) {
	if err := s.idempotency.Complete(ctx, key, participantID, resultReference, responseCode, responseBody, s.nowFn()); err != nil {
		s.logger.ErrorContext(ctx, "idempotency complete failed",
			"module", "idempotency",
			"operation", "complete",
			"outcome", "failure",
			"idempotency_key", key,
			"participant_id", participantID,
			"error", err,
		)
	}
}

// releaseIdempotent removes a reservation after the wrapped operation failed,
// so a retry re-runs the operation instead of reading a poisoned PENDING
// record for the rest of the TTL. Release failures are logged: the key then
// stays blocked until the record expires, which is the safe direction.
func (s *Service) releaseIdempotent(ctx context.Context, key, participantID string) {
	if err := s.idempotency.Delete(ctx, key, participantID); err != nil {
		s.logger.ErrorContext(ctx, "idempotency release failed",
			"module", "idempotency",
			"operation", "release",
			"outcome", "failure",
			"idempotency_key", key,
			"participant_id", participantID,
			"error", err,
		)
	}
}

const idempotencyCompleted = "COMPLETED"

// paymentFingerprint covers the semantically significant VRP payload fields,
// deliberately excluding timestamps and interaction ids.
func paymentFingerprint(consentID string, amountMinor int64, currency string) string {
	return fmt.Sprintf("%s|%d|%s", consentID, amountMinor, strings.ToUpper(currency))
}

func bookingFingerprint(quoteID, participantID string) string {
	return quoteID + "|" + participantID
}

// onboardingFingerprint hashes the opaque encrypted payload so the plaintext
// never lands in the idempotency store.
func onboardingFingerprint(encryptedKYC, currency string) string {
	sum := sha256.Sum256([]byte(encryptedKYC + "|" + strings.ToUpper(currency)))
	return hex.EncodeToString(sum[:])
}
