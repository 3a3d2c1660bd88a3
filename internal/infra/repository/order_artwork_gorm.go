package repository

import (
	"context"

	"gorm.io/gorm"

	"artmarket/internal/domain/model"
)

type OrderArtworkGormRepository struct {
	db *gorm.DB
}

func NewOrderArtworkGormRepository(db *gorm.DB) *OrderArtworkGormRepository {
	return &OrderArtworkGormRepository{db: db}
}

func (r *OrderArtworkGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderArtwork) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *OrderArtworkGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderArtwork, error) {
	var items []model.OrderArtwork
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderArtwork{}, err
	}
	return items, nil
}
