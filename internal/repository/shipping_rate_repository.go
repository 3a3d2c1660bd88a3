package repository

import (
	"context"

	"artmarket/internal/domain/model"
)

type ShippingRateRepository interface {
	FindByCountry(ctx context.Context, country string) (model.ShippingRate, error)
	List(ctx context.Context) ([]model.ShippingRate, error)
	Upsert(ctx context.Context, rate model.ShippingRate) (model.ShippingRate, error)
}
