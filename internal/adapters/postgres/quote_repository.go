package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

type quoteRepository struct {
	db *gorm.DB
}

func (r *quoteRepository) Create(ctx context.Context, quote domain.Quote) error {
	rec := quoteModel{
		QuoteID:          quote.QuoteID,
		ParticipantID:    quote.ParticipantID,
		BaseCurrency:     quote.BaseCurrency,
		QuoteCurrency:    quote.QuoteCurrency,
		RateMicro:        quote.RateMicro,
		BaseAmountMinor:  quote.BaseAmountMinor,
		QuoteAmountMinor: quote.QuoteAmountMinor,
		Status:           string(quote.Status),
		BookedDealID:     nullableString(quote.BookedDealID),
		CreatedAt:        quote.CreatedAt,
		ValidUntil:       quote.ValidUntil,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *quoteRepository) GetByID(ctx context.Context, quoteID string) (domain.Quote, error) {
	var rec quoteModel
	if err := r.db.WithContext(ctx).Where("quote_id = ?", quoteID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Quote{}, domain.ErrNotFound
		}
		return domain.Quote{}, err
	}
	return domain.Quote{
		QuoteID:          rec.QuoteID,
		ParticipantID:    rec.ParticipantID,
		BaseCurrency:     rec.BaseCurrency,
		QuoteCurrency:    rec.QuoteCurrency,
		RateMicro:        rec.RateMicro,
		BaseAmountMinor:  rec.BaseAmountMinor,
		QuoteAmountMinor: rec.QuoteAmountMinor,
		Status:           domain.QuoteStatus(rec.Status),
		BookedDealID:     derefString(rec.BookedDealID),
		CreatedAt:        rec.CreatedAt,
		ValidUntil:       rec.ValidUntil,
	}, nil
}

// Book is the single-writer transition QUOTED -> BOOKED. The guarded UPDATE
// makes concurrent bookings race on the status predicate; exactly one row
// update wins and every other caller gets domain.ErrConflict.
func (r *quoteRepository) Book(ctx context.Context, quoteID, dealID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&quoteModel{}).
		Where("quote_id = ?", quoteID).
		Where("status = ?", string(domain.QuoteQuoted)).
		Updates(map[string]any{
			"status":         string(domain.QuoteBooked),
			"booked_deal_id": dealID,
			"booked_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&quoteModel{}).Where("quote_id = ?", quoteID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}
