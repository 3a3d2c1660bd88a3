package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// 運用上の前進順
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func ValidOrderStatus(s OrderStatus) bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// 前進（スキップ可）かキャンセルのみ許可。CANCELLEDは終端。
// 送金済みかどうかのチェックはusecase側で行う。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == OrderStatusCancelled {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type Order struct {
	ID      int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID int64       `gorm:"not null;index" json:"buyer_id"`
	Status  OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//作成時点で確定（後から再計算しない）
	Subtotal     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingCost decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`

	//配送先
	ShippingName string `gorm:"type:varchar(255);not null" json:"shipping_name"`
	AddressLine1 string `gorm:"type:varchar(255);not null" json:"address_line1"`
	AddressLine2 string `gorm:"type:varchar(255)" json:"address_line2"`
	City         string `gorm:"type:varchar(255);not null" json:"city"`
	PostalCode   string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country      string `gorm:"type:varchar(100);not null" json:"country"`
	Phone        string `gorm:"type:varchar(30)" json:"phone"`

	PaymentIntentID string    `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	IdempotencyKey  string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
