package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

type metadataRepository struct {
	db *gorm.DB
}

func (r *metadataRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.MetadataItem, error) {
	var rows []metadataItemModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("booked_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.MetadataItem, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainMetadataItem(row))
	}
	return result, nil
}

func (r *metadataRepository) GetByID(ctx context.Context, itemID string) (domain.MetadataItem, error) {
	var rec metadataItemModel
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MetadataItem{}, domain.ErrNotFound
		}
		return domain.MetadataItem{}, err
	}
	return toDomainMetadataItem(rec), nil
}

func toDomainMetadataItem(row metadataItemModel) domain.MetadataItem {
	return domain.MetadataItem{
		ItemID:               row.ItemID,
		AccountID:            row.AccountID,
		Description:          row.Description,
		AmountMinor:          row.AmountMinor,
		Currency:             row.Currency,
		MerchantCategoryCode: row.MerchantCategoryCode,
		FxBaseCurrency:       row.FxBaseCurrency,
		FxRateMicro:          row.FxRateMicro,
		BookedAt:             row.BookedAt,
	}
}
