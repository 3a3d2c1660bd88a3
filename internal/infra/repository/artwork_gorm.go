package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
)

type ArtworkGormRepository struct {
	db *gorm.DB
}

// DI
func NewArtworkGormRepository(db *gorm.DB) *ArtworkGormRepository {
	return &ArtworkGormRepository{db: db}
}

// IDで作品を取得（削除済みは除く）
func (r *ArtworkGormRepository) FindByID(ctx context.Context, id int64) (model.Artwork, error) {
	var a model.Artwork
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return model.Artwork{}, translate(err)
	}
	return a, nil
}

// 注文作成用。SELECT ... FOR UPDATE でまとめてロック
func (r *ArtworkGormRepository) FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Artwork, error) {
	if len(ids) == 0 {
		return []model.Artwork{}, nil
	}
	var items []model.Artwork
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.Artwork{}, err
	}
	return items, nil
}

func (r *ArtworkGormRepository) Create(ctx context.Context, a model.Artwork) (model.Artwork, error) {
	if err := r.db.WithContext(ctx).Create(&a).Error; err != nil {
		return model.Artwork{}, translate(err)
	}
	return a, nil
}

// 出品者の編集（再審査のためstatusも書き戻す）
func (r *ArtworkGormRepository) Update(ctx context.Context, a model.Artwork) error {
	res := r.db.WithContext(ctx).Model(&model.Artwork{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"title":         a.Title,
		"category":      a.Category,
		"description":   a.Description,
		"price":         a.Price,
		"weight_kg":     a.WeightKg,
		"length_cm":     a.LengthCm,
		"width_cm":      a.WidthCm,
		"height_cm":     a.HeightCm,
		"image_key":     a.ImageKey,
		"status":        a.Status,
		"reject_reason": a.RejectReason,
		"commission":    a.Commission,
		"net_earnings":  a.NetEarnings,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ArtworkGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Artwork{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// status の compare-and-set
func (r *ArtworkGormRepository) UpdateStatus(ctx context.Context, id int64, from []model.ArtworkStatus, to model.ArtworkStatus, reason string) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == model.ArtworkStatusRejected {
		updates["reject_reason"] = reason
	} else {
		updates["reject_reason"] = ""
	}

	res := r.db.WithContext(ctx).Model(&model.Artwork{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ArtworkGormRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	res := r.db.WithContext(ctx).Model(&model.Artwork{}).
		Where("id = ?", id).
		Update("is_available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 公開中かつ空いているときだけ押さえる
func (r *ArtworkGormRepository) HoldIfReservable(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Artwork{}).
		Where("id = ? AND status = ? AND is_available = ?", id, model.ArtworkStatusVerified, true).
		Update("is_available", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ArtworkGormRepository) MarkInOrder(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Artwork{}).
		Where("id IN ? AND status = ?", ids, model.ArtworkStatusVerified).
		Updates(map[string]interface{}{
			"status":       model.ArtworkStatusInOrder,
			"is_available": false,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
