package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

type paymentRepository struct {
	db *gorm.DB
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	rec := paymentModel{
		PaymentID:      payment.PaymentID,
		ConsentID:      payment.ConsentID,
		ParticipantID:  payment.ParticipantID,
		AmountMinor:    payment.AmountMinor,
		Currency:       payment.Currency,
		PeriodKey:      payment.PeriodKey,
		Status:         string(payment.Status),
		IdempotencyKey: payment.IdempotencyKey,
		CreatedAt:      payment.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, paymentID string) (domain.Payment, error) {
	var rec paymentModel
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payment{}, domain.ErrNotFound
		}
		return domain.Payment{}, err
	}
	return domain.Payment{
		PaymentID:      rec.PaymentID,
		ConsentID:      rec.ConsentID,
		ParticipantID:  rec.ParticipantID,
		AmountMinor:    rec.AmountMinor,
		Currency:       rec.Currency,
		PeriodKey:      rec.PeriodKey,
		Status:         domain.PaymentStatus(rec.Status),
		IdempotencyKey: rec.IdempotencyKey,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

func (r *paymentRepository) SumAccepted(ctx context.Context, consentID, periodKey string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&paymentModel{}).
		Select("COALESCE(SUM(amount_minor), 0)").
		Where("consent_id = ?", consentID).
		Where("period_key = ?", periodKey).
		Where("status = ?", string(domain.PaymentAccepted)).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
