package usecase

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"artmarket/internal/domain/model"
	"artmarket/internal/domain/pricing"
	repo "artmarket/internal/repository"
)

type ShippingUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewShippingUsecase(tx repo.TransactionManager, log *zap.Logger) *ShippingUsecase {
	return &ShippingUsecase{tx: tx, log: orNop(log)}
}

type CalculateShippingInput struct {
	Country string
	Parcels []pricing.Parcel
}

type ShippingCostOutput struct {
	Country      string            `json:"country"`
	ShippingCost decimal.Decimal   `json:"shipping_cost"`
	Items        []decimal.Decimal `json:"items"`
}

// Calculate は国の料金表で1点ずつ計算して合計する。料金表が無ければ404（代替値なし）
func (u *ShippingUsecase) Calculate(ctx context.Context, in CalculateShippingInput) (ShippingCostOutput, error) {
	if strings.TrimSpace(in.Country) == "" {
		return ShippingCostOutput{}, Validation("country is required")
	}
	if len(in.Parcels) == 0 {
		return ShippingCostOutput{}, Validation("at least one parcel is required")
	}

	var out ShippingCostOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rate, err := r.ShippingRates().FindByCountry(ctx, in.Country)
		if err != nil {
			return wrapNotFound(err, "shipping rate not found for country")
		}

		// 合計は丸める前の値で出す。明細は表示用に1点ずつ丸める
		items := make([]decimal.Decimal, 0, len(in.Parcels))
		for _, p := range in.Parcels {
			items = append(items, pricing.ShippingCost(rate, p).Round(2))
		}
		total := pricing.TotalShippingCost(rate, in.Parcels).Round(2)
		out = ShippingCostOutput{Country: rate.Country, ShippingCost: total, Items: items}
		return nil
	})
	if err != nil {
		return ShippingCostOutput{}, err
	}
	return out, nil
}

func (u *ShippingUsecase) List(ctx context.Context) ([]model.ShippingRate, error) {
	var out []model.ShippingRate
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rates, err := r.ShippingRates().List(ctx)
		if err != nil {
			return dbError(err)
		}
		out = rates
		return nil
	})
	if err != nil {
		return []model.ShippingRate{}, err
	}
	return out, nil
}

type UpsertShippingRateInput struct {
	Country           string
	BaseRate          decimal.Decimal
	PerKgRate         decimal.Decimal
	PerCubicMeterRate decimal.Decimal
}

// 管理者が料金表を登録・更新
func (u *ShippingUsecase) Upsert(ctx context.Context, actorAdminUserID int64, in UpsertShippingRateInput) (model.ShippingRate, error) {
	if actorAdminUserID <= 0 {
		return model.ShippingRate{}, unauthorized()
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		return model.ShippingRate{}, Validation("country is required")
	}
	if in.BaseRate.IsNegative() || in.PerKgRate.IsNegative() || in.PerCubicMeterRate.IsNegative() {
		return model.ShippingRate{}, Validation("rates must not be negative")
	}

	var out model.ShippingRate
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		saved, err := r.ShippingRates().Upsert(ctx, model.ShippingRate{
			Country:           country,
			BaseRate:          in.BaseRate,
			PerKgRate:         in.PerKgRate,
			PerCubicMeterRate: in.PerCubicMeterRate,
		})
		if err != nil {
			return dbError(err)
		}
		out = saved
		return nil
	})
	if err != nil {
		return model.ShippingRate{}, err
	}

	u.log.Info("shipping rate saved", zap.String("country", out.Country), zap.Int64("actor_user_id", actorAdminUserID))
	return out, nil
}
