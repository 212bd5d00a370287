package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

const scopePayments = "PAYMENTS"

// CreatePayment admits one variable recurring payment collection. The guard
// runs first, then the idempotency coordinator, then the limit checks inside
// the per-consent critical section so the cumulative read-decide-persist is
// atomic against concurrent attempts on the same consent.
func (s *Service) CreatePayment(ctx context.Context, req PaymentRequest, idempotencyKey string) (PaymentResult, error) {
	if req.AmountMinor <= 0 {
		return PaymentResult{}, fmt.Errorf("%w: amount must be positive", domain.ErrRequestValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return PaymentResult{}, fmt.Errorf("%w: currency is required", domain.ErrRequestValidation)
	}

	if _, err := s.Authorize(ctx, req.ConsentID, req.ParticipantID, scopePayments, ""); err != nil {
		return PaymentResult{}, err
	}

	fingerprint := paymentFingerprint(req.ConsentID, req.AmountMinor, currency)
	replay, err := s.beginIdempotent(ctx, idempotencyKey, req.ParticipantID, fingerprint)
	if err != nil {
		return PaymentResult{}, err
	}
	if replay != nil {
		payment, err := s.payments.GetByID(ctx, replay.ResultReference)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// The stored result vanished: a data-integrity bug that must
				// surface rather than silently re-execute.
				return PaymentResult{}, fmt.Errorf("%w: Payment not found", domain.ErrNotFound)
			}
			return PaymentResult{}, fmt.Errorf("resolve replayed payment: %w", err)
		}
		return PaymentResult{Payment: paymentView(payment), IdempotencyReplay: true}, nil
	}

	periodKey := strings.TrimSpace(req.PeriodKey)
	if periodKey == "" {
		periodKey = s.nowFn().Format("2006-01")
	}

	var accepted domain.Payment
	lockErr := s.locker.WithConsentLock(ctx, req.ConsentID, func(ctx context.Context) error {
		// Re-read under the lock: a revocation or expiry racing the admission
		// must be observed before any money moves.
		consent, err := s.consents.GetByID(ctx, req.ConsentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: Consent not found", domain.ErrNotFound)
			}
			return err
		}
		now := s.nowFn()
		switch consent.StatusAt(now) {
		case domain.ConsentRevoked:
			return fmt.Errorf("%w: Consent Revoked", domain.ErrForbidden)
		case domain.ConsentExpired:
			return fmt.Errorf("%w: Consent expired", domain.ErrForbidden)
		}
		if consent.Currency != currency {
			return fmt.Errorf("%w: Currency mismatch: consent is limited to %s", domain.ErrBusinessRuleViolation, consent.Currency)
		}
		if consent.PerTransactionLimitMinor > 0 && req.AmountMinor > consent.PerTransactionLimitMinor {
			return fmt.Errorf("%w: Limit Exceeded: amount %d exceeds per-transaction limit %d",
				domain.ErrBusinessRuleViolation, req.AmountMinor, consent.PerTransactionLimitMinor)
		}

		sum, err := s.payments.SumAccepted(ctx, req.ConsentID, periodKey)
		if err != nil {
			return fmt.Errorf("sum accepted payments: %w", err)
		}
		if sum+req.AmountMinor > consent.PeriodLimitMinor {
			s.logger.WarnContext(ctx, "payment rejected",
				"module", "payments",
				"operation", "create_payment",
				"outcome", "rejected",
				"consent_id", req.ConsentID,
				"period_key", periodKey,
				"cumulative_minor", sum,
				"amount_minor", req.AmountMinor,
				"limit_minor", consent.PeriodLimitMinor,
			)
			return fmt.Errorf("%w: Limit Exceeded: cumulative %d plus %d exceeds period limit %d",
				domain.ErrBusinessRuleViolation, sum, req.AmountMinor, consent.PeriodLimitMinor)
		}

		accepted = domain.Payment{
			PaymentID:      "PAY-" + uuid.NewString(),
			ConsentID:      req.ConsentID,
			ParticipantID:  req.ParticipantID,
			AmountMinor:    req.AmountMinor,
			Currency:       currency,
			PeriodKey:      periodKey,
			Status:         domain.PaymentAccepted,
			IdempotencyKey: idempotencyKey,
			CreatedAt:      now,
		}
		if err := s.payments.Create(ctx, accepted); err != nil {
			return fmt.Errorf("persist payment: %w", err)
		}
		return nil
	})
	if lockErr != nil {
		// Only successful admissions keep their record: release so a retry
		// re-runs the limit checks instead of hitting a stale reservation.
		s.releaseIdempotent(ctx, idempotencyKey, req.ParticipantID)
		return PaymentResult{}, lockErr
	}

	now := s.nowFn()
	eventPayload, _ := json.Marshal(map[string]any{
		"payment_id":     accepted.PaymentID,
		"consent_id":     accepted.ConsentID,
		"participant_id": accepted.ParticipantID,
		"amount_minor":   accepted.AmountMinor,
		"currency":       accepted.Currency,
		"period_key":     accepted.PeriodKey,
		"occurred_at":    now,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "openfinance.payment.accepted",
		PartitionKey: accepted.ConsentID,
		Payload:      eventPayload,
		OccurredAt:   now,
	}); err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "payments",
			"operation", "enqueue_event",
			"outcome", "failure",
			"payment_id", accepted.PaymentID,
			"error", err,
		)
	}

	result := PaymentResult{Payment: paymentView(accepted)}
	responseBody, _ := json.Marshal(result)
	s.finishIdempotent(ctx, idempotencyKey, req.ParticipantID, accepted.PaymentID, http.StatusCreated, responseBody)

	s.logger.InfoContext(ctx, "payment accepted",
		"module", "payments",
		"operation", "create_payment",
		"outcome", "success",
		"payment_id", accepted.PaymentID,
		"consent_id", accepted.ConsentID,
		"amount_minor", accepted.AmountMinor,
	)
	return result, nil
}

// GetPayment returns one ledger row, restricted to its owning participant.
func (s *Service) GetPayment(ctx context.Context, paymentID, participantID string) (PaymentView, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return PaymentView{}, fmt.Errorf("%w: Payment not found", domain.ErrNotFound)
		}
		return PaymentView{}, err
	}
	if payment.ParticipantID != participantID {
		return PaymentView{}, fmt.Errorf("%w: participant mismatch", domain.ErrForbidden)
	}
	return paymentView(payment), nil
}

func paymentView(p domain.Payment) PaymentView {
	return PaymentView{
		PaymentID:   p.PaymentID,
		ConsentID:   p.ConsentID,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		PeriodKey:   p.PeriodKey,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}
