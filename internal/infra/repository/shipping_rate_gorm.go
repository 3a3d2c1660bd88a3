package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"artmarket/internal/domain/model"
)

type ShippingRateGormRepository struct {
	db *gorm.DB
}

func NewShippingRateGormRepository(db *gorm.DB) *ShippingRateGormRepository {
	return &ShippingRateGormRepository{db: db}
}

// 国名は大文字小文字を区別しない
func (r *ShippingRateGormRepository) FindByCountry(ctx context.Context, country string) (model.ShippingRate, error) {
	var rate model.ShippingRate
	err := r.db.WithContext(ctx).
		Where("LOWER(country) = ?", strings.ToLower(strings.TrimSpace(country))).
		First(&rate).Error
	if err != nil {
		return model.ShippingRate{}, translate(err)
	}
	return rate, nil
}

func (r *ShippingRateGormRepository) List(ctx context.Context) ([]model.ShippingRate, error) {
	var rates []model.ShippingRate
	if err := r.db.WithContext(ctx).Order("country asc").Find(&rates).Error; err != nil {
		return []model.ShippingRate{}, err
	}
	return rates, nil
}

// countryで upsert
func (r *ShippingRateGormRepository) Upsert(ctx context.Context, rate model.ShippingRate) (model.ShippingRate, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "country"}},
			DoUpdates: clause.AssignmentColumns([]string{"base_rate", "per_kg_rate", "per_cubic_meter_rate", "updated_at"}),
		}).
		Create(&rate).Error
	if err != nil {
		return model.ShippingRate{}, err
	}
	return r.FindByCountry(ctx, rate.Country)
}
