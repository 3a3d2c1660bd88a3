package pricing

import (
	"github.com/shopspring/decimal"

	"artmarket/internal/domain/model"
)

var cmToMeter = decimal.RequireFromString("0.01")

// 1点分の荷物（kg / cm）
type Parcel struct {
	WeightKg decimal.Decimal
	LengthCm decimal.Decimal
	WidthCm  decimal.Decimal
	HeightCm decimal.Decimal
}

func ParcelOf(a model.Artwork) Parcel {
	return Parcel{
		WeightKg: a.WeightKg,
		LengthCm: a.LengthCm,
		WidthCm:  a.WidthCm,
		HeightCm: a.HeightCm,
	}
}

// 体積（立方メートル）
func (p Parcel) VolumeM3() decimal.Decimal {
	l := p.LengthCm.Mul(cmToMeter)
	w := p.WidthCm.Mul(cmToMeter)
	h := p.HeightCm.Mul(cmToMeter)
	return l.Mul(w).Mul(h)
}

// ShippingCost = base + perKg*weight + perCubic*volume
func ShippingCost(rate model.ShippingRate, p Parcel) decimal.Decimal {
	return rate.BaseRate.
		Add(rate.PerKgRate.Mul(p.WeightKg)).
		Add(rate.PerCubicMeterRate.Mul(p.VolumeM3()))
}

// 複数点は1点ずつの合計（同梱割引なし）
func TotalShippingCost(rate model.ShippingRate, parcels []Parcel) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parcels {
		total = total.Add(ShippingCost(rate, p))
	}
	return total
}
