// Package pricing は手数料と配送料の計算（副作用なし）。
package pricing

import "github.com/shopspring/decimal"

// 価格帯ごとの手数料率（上限を含む）。累進ではなく該当帯の率を全額に掛ける。
type commissionTier struct {
	upTo decimal.Decimal
	rate decimal.Decimal
}

var commissionTiers = []commissionTier{
	{upTo: decimal.NewFromInt(20), rate: decimal.RequireFromString("0.20")},
	{upTo: decimal.NewFromInt(100), rate: decimal.RequireFromString("0.15")},
	{upTo: decimal.NewFromInt(500), rate: decimal.RequireFromString("0.10")},
}

// 500超
var topCommissionRate = decimal.RequireFromString("0.05")

// CommissionRate は価格に対応する手数料率を返す。
func CommissionRate(price decimal.Decimal) decimal.Decimal {
	for _, t := range commissionTiers {
		if price.LessThanOrEqual(t.upTo) {
			return t.rate
		}
	}
	return topCommissionRate
}

// Commission はプラットフォーム手数料と出品者の手取りを返す。
// 丸めない。保存・表示時に Round(2) する。
func Commission(price decimal.Decimal) (commission decimal.Decimal, net decimal.Decimal) {
	commission = price.Mul(CommissionRate(price))
	net = price.Sub(commission)
	return commission, net
}
