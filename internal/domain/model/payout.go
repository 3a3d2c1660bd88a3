package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	//送金処理中（この時点でキャンセル不可）
	PayoutStatusPending   PayoutStatus = "PENDING"
	PayoutStatusCompleted PayoutStatus = "COMPLETED"
	//プロバイダが拒否（送金されていない。新しいキーで再送金できる）
	PayoutStatusFailed PayoutStatus = "FAILED"
	//タイムアウト等で結果不明（同じキーで再送金、キャンセル不可）
	PayoutStatusUnknown PayoutStatus = "UNKNOWN"
)

// 出品者への送金記録。1作品につき1件。
type Payout struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ArtworkID      int64           `gorm:"not null;uniqueIndex" json:"artwork_id"`
	OrderID        int64           `gorm:"not null;index" json:"order_id"`
	SellerID       int64           `gorm:"not null;index" json:"seller_id"`
	AccountID      string          `gorm:"type:varchar(255);not null" json:"account_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status         PayoutStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	TransferID     string          `gorm:"type:varchar(255)" json:"transfer_id,omitempty"`
	FailureReason  string          `gorm:"type:text" json:"failure_reason,omitempty"`
	IdempotencyKey string          `gorm:"type:varchar(255);not null" json:"-"`
	Attempts       int             `gorm:"not null;default:1" json:"attempts"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// FAILED以外は「支払い済み扱い」
func (p Payout) Blocking() bool {
	switch p.Status {
	case PayoutStatusPending, PayoutStatusCompleted, PayoutStatusUnknown:
		return true
	}
	return false
}

// BlockingPayoutStatuses は Blocking と同じ集合（クエリ用）
var BlockingPayoutStatuses = []PayoutStatus{PayoutStatusPending, PayoutStatusCompleted, PayoutStatusUnknown}
