package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
)

type CartReservationGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartReservationGormRepository(db *gorm.DB) *CartReservationGormRepository {
	return &CartReservationGormRepository{db: db}
}

// artwork_idのユニーク制約に当たったら ErrDuplicate
func (r *CartReservationGormRepository) Create(ctx context.Context, res model.CartReservation) (model.CartReservation, error) {
	if err := r.db.WithContext(ctx).Create(&res).Error; err != nil {
		return model.CartReservation{}, translate(err)
	}
	return res, nil
}

func (r *CartReservationGormRepository) FindByArtworkID(ctx context.Context, artworkID int64) (model.CartReservation, error) {
	var res model.CartReservation
	err := r.db.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		First(&res).Error
	if err != nil {
		return model.CartReservation{}, translate(err)
	}
	return res, nil
}

// カートの中身（古い順）
func (r *CartReservationGormRepository) ListByBuyerID(ctx context.Context, buyerID int64) ([]model.CartReservation, error) {
	var items []model.CartReservation
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("added_at asc").
		Find(&items).Error; err != nil {
		return []model.CartReservation{}, err
	}
	return items, nil
}

func (r *CartReservationGormRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.CartReservation, error) {
	if limit <= 0 {
		limit = 500
	}
	var items []model.CartReservation
	if err := r.db.WithContext(ctx).
		Where("added_at <= ?", cutoff).
		Order("added_at asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return []model.CartReservation{}, err
	}
	return items, nil
}

func (r *CartReservationGormRepository) DeleteByArtworkID(ctx context.Context, artworkID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		Delete(&model.CartReservation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 同じ行が取り直されていないか（added_atで再チェック）
func (r *CartReservationGormRepository) DeleteIfExpired(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND added_at <= ?", id, cutoff).
		Delete(&model.CartReservation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CartReservationGormRepository) DeleteByBuyerAndArtworkIDs(ctx context.Context, buyerID int64, artworkIDs []int64) (int64, error) {
	if len(artworkIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("buyer_id = ? AND artwork_id IN ?", buyerID, artworkIDs).
		Delete(&model.CartReservation{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

var _ repo.CartReservationRepository = (*CartReservationGormRepository)(nil)
