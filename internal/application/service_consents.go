package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// CreateConsent records a new PENDING consent for the calling participant.
func (s *Service) CreateConsent(ctx context.Context, req CreateConsentRequest) (ConsentView, error) {
	if req.ParticipantID == "" {
		return ConsentView{}, fmt.Errorf("%w: participant id is required", domain.ErrRequestValidation)
	}
	if len(req.Scopes) == 0 {
		return ConsentView{}, fmt.Errorf("%w: at least one scope is required", domain.ErrRequestValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return ConsentView{}, fmt.Errorf("%w: currency is required", domain.ErrRequestValidation)
	}

	now := s.nowFn()
	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.cfg.DefaultConsentTTL)
	}
	if !expiresAt.After(now) {
		return ConsentView{}, fmt.Errorf("%w: expires_at must be in the future", domain.ErrRequestValidation)
	}

	scopes := make([]string, 0, len(req.Scopes))
	for _, sc := range req.Scopes {
		normalized := domain.NormalizeScope(sc)
		if normalized == "" {
			return ConsentView{}, fmt.Errorf("%w: empty scope token", domain.ErrRequestValidation)
		}
		scopes = append(scopes, normalized)
	}

	periodLimit := req.PeriodLimitMinor
	if periodLimit <= 0 {
		periodLimit = s.cfg.DefaultPeriodLimitMinor
	}
	perTx := req.PerTransactionLimitMinor
	if perTx <= 0 {
		perTx = s.cfg.DefaultPerTransactionLimitMinor
	}

	consent := domain.Consent{
		ConsentID:                "CONS-" + uuid.NewString(),
		ParticipantID:            req.ParticipantID,
		CustomerID:               req.CustomerID,
		Scopes:                   scopes,
		LinkedAccountIDs:         append([]string(nil), req.LinkedAccountIDs...),
		Status:                   domain.ConsentPending,
		Currency:                 currency,
		PeriodLimitMinor:         periodLimit,
		PerTransactionLimitMinor: perTx,
		CreatedAt:                now,
		ExpiresAt:                expiresAt,
	}
	if err := s.consents.Create(ctx, consent); err != nil {
		return ConsentView{}, fmt.Errorf("create consent: %w", err)
	}

	s.logger.InfoContext(ctx, "consent created",
		"module", "consents",
		"operation", "create_consent",
		"outcome", "success",
		"consent_id", consent.ConsentID,
		"participant_id", consent.ParticipantID,
	)
	return s.consentView(consent), nil
}

// AuthorizeConsent moves a PENDING consent to AUTHORIZED. Authorizing a
// consent whose expiry already passed is a conflict, and non-pending states
// cannot be authorized.
func (s *Service) AuthorizeConsent(ctx context.Context, consentID, participantID string) (ConsentView, error) {
	consent, err := s.ownedConsent(ctx, consentID, participantID)
	if err != nil {
		return ConsentView{}, err
	}

	now := s.nowFn()
	if consent.Status != domain.ConsentPending {
		return ConsentView{}, fmt.Errorf("%w: consent is not pending authorization", domain.ErrConflict)
	}
	if !now.Before(consent.ExpiresAt) {
		return ConsentView{}, fmt.Errorf("%w: consent expired before authorization", domain.ErrConflict)
	}

	consent.Status = domain.ConsentAuthorized
	if err := s.consents.Update(ctx, consent); err != nil {
		return ConsentView{}, fmt.Errorf("authorize consent: %w", err)
	}
	s.enqueueConsentEvent(ctx, "openfinance.consent.authorized", consent, now)

	s.logger.InfoContext(ctx, "consent authorized",
		"module", "consents",
		"operation", "authorize_consent",
		"outcome", "success",
		"consent_id", consent.ConsentID,
	)
	return s.consentView(consent), nil
}

// RevokeConsent revokes a PENDING or AUTHORIZED consent. Revoking a consent
// that is already revoked or has lapsed is a conflict.
func (s *Service) RevokeConsent(ctx context.Context, consentID, participantID, reason string) (ConsentView, error) {
	consent, err := s.ownedConsent(ctx, consentID, participantID)
	if err != nil {
		return ConsentView{}, err
	}

	now := s.nowFn()
	switch consent.StatusAt(now) {
	case domain.ConsentRevoked:
		return ConsentView{}, fmt.Errorf("%w: consent already revoked", domain.ErrConflict)
	case domain.ConsentExpired:
		return ConsentView{}, fmt.Errorf("%w: consent already expired", domain.ErrConflict)
	}

	consent.Status = domain.ConsentRevoked
	consent.RevokedAt = &now
	consent.RevocationReason = strings.TrimSpace(reason)
	if err := s.consents.Update(ctx, consent); err != nil {
		return ConsentView{}, fmt.Errorf("revoke consent: %w", err)
	}
	s.enqueueConsentEvent(ctx, "openfinance.consent.revoked", consent, now)

	s.logger.InfoContext(ctx, "consent revoked",
		"module", "consents",
		"operation", "revoke_consent",
		"outcome", "success",
		"consent_id", consent.ConsentID,
		"reason", consent.RevocationReason,
	)
	return s.consentView(consent), nil
}

// RenewConsent extends the expiry of an AUTHORIZED, unexpired consent.
func (s *Service) RenewConsent(ctx context.Context, consentID, participantID string, newExpiry time.Time) (ConsentView, error) {
	consent, err := s.ownedConsent(ctx, consentID, participantID)
	if err != nil {
		return ConsentView{}, err
	}

	now := s.nowFn()
	if consent.StatusAt(now) != domain.ConsentAuthorized {
		return ConsentView{}, fmt.Errorf("%w: only an active consent can be renewed", domain.ErrConflict)
	}
	if !newExpiry.After(consent.ExpiresAt) {
		return ConsentView{}, fmt.Errorf("%w: renewal must extend the expiry", domain.ErrRequestValidation)
	}

	consent.ExpiresAt = newExpiry
	if err := s.consents.Update(ctx, consent); err != nil {
		return ConsentView{}, fmt.Errorf("renew consent: %w", err)
	}

	s.logger.InfoContext(ctx, "consent renewed",
		"module", "consents",
		"operation", "renew_consent",
		"outcome", "success",
		"consent_id", consent.ConsentID,
		"expires_at", newExpiry,
	)
	return s.consentView(consent), nil
}

// GetConsent returns the lazily derived lifecycle view of an owned consent.
func (s *Service) GetConsent(ctx context.Context, consentID, participantID string) (ConsentView, error) {
	consent, err := s.ownedConsent(ctx, consentID, participantID)
	if err != nil {
		return ConsentView{}, err
	}
	return s.consentView(consent), nil
}

// VerifyConsent backs the internal gRPC surface: a full guard pass reduced to
// an active/status verdict for sibling services.
func (s *Service) VerifyConsent(ctx context.Context, consentID, participantID, permission, resourceID string) (ConsentVerification, error) {
	cc, err := s.Authorize(ctx, consentID, participantID, permission, resourceID)
	if err != nil {
		return ConsentVerification{}, err
	}
	consent, err := s.consents.GetByID(ctx, consentID)
	if err != nil {
		return ConsentVerification{}, err
	}
	return ConsentVerification{
		Active:    true,
		Status:    string(consent.StatusAt(s.nowFn())),
		Scopes:    cc.Scopes,
		ExpiresAt: cc.ExpiresAt,
	}, nil
}

func (s *Service) ownedConsent(ctx context.Context, consentID, participantID string) (domain.Consent, error) {
	consent, err := s.consents.GetByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Consent{}, fmt.Errorf("%w: Consent not found", domain.ErrNotFound)
		}
		return domain.Consent{}, err
	}
	if consent.ParticipantID != participantID {
		return domain.Consent{}, fmt.Errorf("%w: participant mismatch", domain.ErrForbidden)
	}
	return consent, nil
}

func (s *Service) consentView(consent domain.Consent) ConsentView {
	now := s.nowFn()
	status := consent.StatusAt(now)
	return ConsentView{
		ConsentID:                consent.ConsentID,
		ParticipantID:            consent.ParticipantID,
		CustomerID:               consent.CustomerID,
		Scopes:                   consent.Scopes,
		LinkedAccountIDs:         consent.LinkedAccountIDs,
		Status:                   string(status),
		Active:                   status == domain.ConsentAuthorized,
		Currency:                 consent.Currency,
		PeriodLimitMinor:         consent.PeriodLimitMinor,
		PerTransactionLimitMinor: consent.PerTransactionLimitMinor,
		CreatedAt:                consent.CreatedAt,
		ExpiresAt:                consent.ExpiresAt,
		RevokedAt:                consent.RevokedAt,
		RevocationReason:         consent.RevocationReason,
	}
}

func (s *Service) enqueueConsentEvent(ctx context.Context, eventType string, consent domain.Consent, occurredAt time.Time) {
	payload, _ := json.Marshal(map[string]any{
		"consent_id":     consent.ConsentID,
		"participant_id": consent.ParticipantID,
		"status":         string(consent.Status),
		"occurred_at":    occurredAt,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: consent.ConsentID,
		Payload:      payload,
		OccurredAt:   occurredAt,
	}); err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "consents",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}
