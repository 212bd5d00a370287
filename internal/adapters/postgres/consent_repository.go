package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

type consentRepository struct {
	db *gorm.DB
}

func (r *consentRepository) Create(ctx context.Context, consent domain.Consent) error {
	rec := toConsentModel(consent)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *consentRepository) GetByID(ctx context.Context, consentID string) (domain.Consent, error) {
	var rec consentModel
	if err := r.db.WithContext(ctx).Where("consent_id = ?", consentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Consent{}, domain.ErrNotFound
		}
		return domain.Consent{}, err
	}
	return toDomainConsent(rec), nil
}

func (r *consentRepository) Update(ctx context.Context, consent domain.Consent) error {
	res := r.db.WithContext(ctx).
		Model(&consentModel{}).
		Where("consent_id = ?", consent.ConsentID).
		Updates(map[string]any{
			"status":            string(consent.Status),
			"expires_at":        consent.ExpiresAt,
			"revoked_at":        consent.RevokedAt,
			"revocation_reason": consent.RevocationReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toConsentModel(c domain.Consent) consentModel {
	return consentModel{
		ConsentID:                c.ConsentID,
		ParticipantID:            c.ParticipantID,
		CustomerID:               c.CustomerID,
		Scopes:                   joinList(c.Scopes),
		LinkedAccountIDs:         joinList(c.LinkedAccountIDs),
		Status:                   string(c.Status),
		Currency:                 c.Currency,
		PeriodLimitMinor:         c.PeriodLimitMinor,
		PerTransactionLimitMinor: c.PerTransactionLimitMinor,
		CreatedAt:                c.CreatedAt,
		ExpiresAt:                c.ExpiresAt,
		RevokedAt:                c.RevokedAt,
		RevocationReason:         c.RevocationReason,
	}
}

func toDomainConsent(rec consentModel) domain.Consent {
	return domain.Consent{
		ConsentID:                rec.ConsentID,
		ParticipantID:            rec.ParticipantID,
		CustomerID:               rec.CustomerID,
		Scopes:                   splitList(rec.Scopes),
		LinkedAccountIDs:         splitList(rec.LinkedAccountIDs),
		Status:                   domain.ConsentStatus(rec.Status),
		Currency:                 rec.Currency,
		PeriodLimitMinor:         rec.PeriodLimitMinor,
		PerTransactionLimitMinor: rec.PerTransactionLimitMinor,
		CreatedAt:                rec.CreatedAt,
		ExpiresAt:                rec.ExpiresAt,
		RevokedAt:                rec.RevokedAt,
		RevocationReason:         rec.RevocationReason,
	}
}
