package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
)

type PayoutGormRepository struct {
	db *gorm.DB
}

func NewPayoutGormRepository(db *gorm.DB) *PayoutGormRepository {
	return &PayoutGormRepository{db: db}
}

func (r *PayoutGormRepository) FindByArtworkID(ctx context.Context, artworkID int64) (model.Payout, error) {
	var p model.Payout
	if err := r.db.WithContext(ctx).Where("artwork_id = ?", artworkID).First(&p).Error; err != nil {
		return model.Payout{}, translate(err)
	}
	return p, nil
}

func (r *PayoutGormRepository) Create(ctx context.Context, p model.Payout) (model.Payout, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Payout{}, translate(err)
	}
	return p, nil
}

// FAILED/UNKNOWNのものだけ取り直せる
func (r *PayoutGormRepository) Retry(ctx context.Context, id int64, from model.PayoutStatus, idempotencyKey string) (bool, error) {
	if from != model.PayoutStatusFailed && from != model.PayoutStatusUnknown {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":          model.PayoutStatusPending,
			"failure_reason":  "",
			"idempotency_key": idempotencyKey,
			"attempts":        gorm.Expr("attempts + 1"),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PayoutGormRepository) MarkCompleted(ctx context.Context, id int64, transferID string) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":      model.PayoutStatusCompleted,
		"transfer_id": transferID,
	})
}

func (r *PayoutGormRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":         model.PayoutStatusFailed,
		"failure_reason": reason,
	})
}

func (r *PayoutGormRepository) MarkUnknown(ctx context.Context, id int64, reason string) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":         model.PayoutStatusUnknown,
		"failure_reason": reason,
	})
}

func (r *PayoutGormRepository) setStatus(ctx context.Context, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("id = ? AND status = ?", id, model.PayoutStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PayoutGormRepository) ExistsBlockingForArtworks(ctx context.Context, artworkIDs []int64) (bool, error) {
	if len(artworkIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("artwork_id IN ? AND status IN ?", artworkIDs, model.BlockingPayoutStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
