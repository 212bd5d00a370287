package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key, participantID string) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Where("participant_id = ?", participantID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := ports.IdempotencyRecord{
		IdempotencyKey:  rec.IdempotencyKey,
		ParticipantID:   rec.ParticipantID,
		RequestHash:     rec.RequestHash,
		ResultReference: rec.ResultReference,
		Status:          rec.Status,
		ResponseCode:    rec.ResponseCode,
		CreatedAt:       rec.CreatedAt,
		ExpiresAt:       rec.ExpiresAt,
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return &out, nil
}

// Reserve relies on the (idempotency_key, participant_id) primary key: the
// first concurrent attempt inserts, every other one gets the unique
// violation mapped to domain.ErrConflict and re-reads.
func (r *idempotencyRepository) Reserve(ctx context.Context, key, participantID, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	rec := idempotencyModel{
		IdempotencyKey: key,
		ParticipantID:  participantID,
		RequestHash:    requestHash,
		Status:         "PENDING",
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
		UpdatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, participantID, resultReference string, responseCode int, responseBody []byte, at time.Time) error {
	var body *string
	if len(responseBody) > 0 {
		raw := string(responseBody)
		body = &raw
	}
	return r.db.WithContext(ctx).
		Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Where("participant_id = ?", participantID).
		Updates(map[string]any{
			"status":           "COMPLETED",
			"result_reference": resultReference,
			"response_code":    responseCode,
			"response_body":    body,
			"updated_at":       at,
		}).Error
}

func (r *idempotencyRepository) Delete(ctx context.Context, key, participantID string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Where("participant_id = ?", participantID).
		Delete(&idempotencyModel{}).Error
}

// DeleteExpired selects by the full composite key: two participants may hold
// the same idempotency key, and only the expired row may go.
func (r *idempotencyRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	subquery := r.db.Model(&idempotencyModel{}).
		Select("idempotency_key, participant_id").
		Where("expires_at < ?", before).
		Limit(limit)
	res := r.db.WithContext(ctx).
		Where("(idempotency_key, participant_id) IN (?)", subquery).
		Delete(&idempotencyModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
