package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 国ごとの配送料テーブル（参照専用データ）
type ShippingRate struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Country string `gorm:"type:varchar(100);not null;uniqueIndex" json:"country"`

	BaseRate          decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"base_rate"`
	PerKgRate         decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"per_kg_rate"`
	PerCubicMeterRate decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"per_cubic_meter_rate"`

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
