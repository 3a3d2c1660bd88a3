package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細（作品1点ごと）。作成時点の値をスナップショット。
type OrderArtwork struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index" json:"order_id"`
	ArtworkID     int64           `gorm:"not null;index" json:"artwork_id"`
	SellerID      int64           `gorm:"not null;index" json:"seller_id"`
	TitleSnapshot string          `gorm:"type:varchar(255);not null" json:"title_snapshot"`
	PriceSnapshot decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_snapshot"`
	ShippingCost  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
