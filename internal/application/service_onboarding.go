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

// OpenAccount runs the onboarding sequence: decrypt the KYC payload, screen
// the extracted identity, create the account. The whole sequence sits behind
// the idempotency coordinator so an identical retry returns the same account
// without re-screening, while a differing payload under the same key is a
// conflict. Decryption failure aborts before any screening runs.
func (s *Service) OpenAccount(ctx context.Context, req OpenAccountRequest, idempotencyKey string) (OpenAccountResult, error) {
	if strings.TrimSpace(req.EncryptedKYC) == "" {
		return OpenAccountResult{}, fmt.Errorf("%w: encrypted kyc payload is required", domain.ErrRequestValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return OpenAccountResult{}, fmt.Errorf("%w: currency is required", domain.ErrRequestValidation)
	}

	fingerprint := onboardingFingerprint(req.EncryptedKYC, currency)
	replay, err := s.beginIdempotent(ctx, idempotencyKey, req.ParticipantID, fingerprint)
	if err != nil {
		return OpenAccountResult{}, err
	}
	if replay != nil {
		account, err := s.accounts.GetByID(ctx, replay.ResultReference)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return OpenAccountResult{}, fmt.Errorf("%w: Account not found", domain.ErrNotFound)
			}
			return OpenAccountResult{}, fmt.Errorf("resolve replayed account: %w", err)
		}
		return OpenAccountResult{Account: accountView(account), IdempotencyReplay: true}, nil
	}

	result, err := s.openReservedAccount(ctx, req, currency, idempotencyKey)
	if err != nil {
		// A rejected sequence must be retryable with the same key once the
		// payload is corrected, so the reservation does not outlive it.
		s.releaseIdempotent(ctx, idempotencyKey, req.ParticipantID)
		return OpenAccountResult{}, err
	}
	return result, nil
}

// openReservedAccount runs decrypt, screen and create under a held reservation.
func (s *Service) openReservedAccount(ctx context.Context, req OpenAccountRequest, currency, idempotencyKey string) (OpenAccountResult, error) {
	plaintext, err := s.decrypter.Decrypt(ctx, req.EncryptedKYC)
	if err != nil {
		s.logger.WarnContext(ctx, "kyc decryption failed",
			"module", "onboarding",
			"operation", "open_account",
			"outcome", "rejected",
			"participant_id", req.ParticipantID,
		)
		return OpenAccountResult{}, fmt.Errorf("%w: Decryption Failed", domain.ErrDecryptionFailed)
	}

	parts := strings.SplitN(plaintext, "|", 3)
	if len(parts) != 3 {
		return OpenAccountResult{}, fmt.Errorf("%w: kyc payload must carry name, id number and country", domain.ErrRequestValidation)
	}
	fullName := strings.TrimSpace(parts[0])
	idNumber := strings.TrimSpace(parts[1])
	countryCode := strings.ToUpper(strings.TrimSpace(parts[2]))
	if fullName == "" || idNumber == "" || countryCode == "" {
		return OpenAccountResult{}, fmt.Errorf("%w: kyc payload fields must be non-empty", domain.ErrRequestValidation)
	}

	hit, err := s.screener.Screen(ctx, fullName, idNumber, countryCode)
	if err != nil {
		return OpenAccountResult{}, fmt.Errorf("%w: sanctions screening: %v", domain.ErrUnavailable, err)
	}
	if hit {
		s.logger.WarnContext(ctx, "onboarding blocked by sanctions screening",
			"module", "onboarding",
			"operation", "open_account",
			"outcome", "rejected",
			"participant_id", req.ParticipantID,
		)
		return OpenAccountResult{}, fmt.Errorf("%w: Onboarding Rejected", domain.ErrComplianceViolation)
	}

	now := s.nowFn()
	account := domain.Account{
		AccountID:         "ACC-" + uuid.NewString(),
		CustomerReference: "CIF-" + uuid.NewString(),
		ParticipantID:     req.ParticipantID,
		FullName:          fullName,
		IDNumber:          idNumber,
		CountryCode:       countryCode,
		Currency:          currency,
		Status:            domain.AccountOpened,
		OpenedAt:          now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return OpenAccountResult{}, fmt.Errorf("create account: %w", err)
	}

	eventPayload, _ := json.Marshal(map[string]any{
		"account_id":     account.AccountID,
		"participant_id": account.ParticipantID,
		"country_code":   account.CountryCode,
		"occurred_at":    now,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "openfinance.account.opened",
		PartitionKey: account.AccountID,
		Payload:      eventPayload,
		OccurredAt:   now,
	}); err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "onboarding",
			"operation", "enqueue_event",
			"outcome", "failure",
			"account_id", account.AccountID,
			"error", err,
		)
	}

	result := OpenAccountResult{Account: accountView(account)}
	responseBody, _ := json.Marshal(result)
	s.finishIdempotent(ctx, idempotencyKey, req.ParticipantID, account.AccountID, http.StatusCreated, responseBody)

	s.logger.InfoContext(ctx, "account opened",
		"module", "onboarding",
		"operation", "open_account",
		"outcome", "success",
		"account_id", account.AccountID,
		"participant_id", account.ParticipantID,
	)
	return result, nil
}

// GetAccount returns an onboarded account, restricted to its creator.
func (s *Service) GetAccount(ctx context.Context, accountID, participantID string) (AccountView, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AccountView{}, fmt.Errorf("%w: Account not found", domain.ErrNotFound)
		}
		return AccountView{}, err
	}
	if account.ParticipantID != participantID {
		return AccountView{}, fmt.Errorf("%w: participant mismatch", domain.ErrForbidden)
	}
	return accountView(account), nil
}

func accountView(a domain.Account) AccountView {
	return AccountView{
		AccountID:         a.AccountID,
		CustomerReference: a.CustomerReference,
		FullName:          a.FullName,
		CountryCode:       a.CountryCode,
		Currency:          a.Currency,
		Status:            string(a.Status),
		OpenedAt:          a.OpenedAt,
	}
}
