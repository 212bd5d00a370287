package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account domain.Account) error {
	rec := accountModel{
		AccountID:         account.AccountID,
		CustomerReference: account.CustomerReference,
		ParticipantID:     account.ParticipantID,
		FullName:          account.FullName,
		IDNumber:          account.IDNumber,
		CountryCode:       account.CountryCode,
		Currency:          account.Currency,
		Status:            string(account.Status),
		OpenedAt:          account.OpenedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, accountID string) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return domain.Account{
		AccountID:         rec.AccountID,
		CustomerReference: rec.CustomerReference,
		ParticipantID:     rec.ParticipantID,
		FullName:          rec.FullName,
		IDNumber:          rec.IDNumber,
		CountryCode:       rec.CountryCode,
		Currency:          rec.Currency,
		Status:            domain.AccountStatus(rec.Status),
		OpenedAt:          rec.OpenedAt,
	}, nil
}
