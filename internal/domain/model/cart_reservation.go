package model

import "time"

// カートの押さえ。1作品につき1件（artwork_idのユニーク制約で二重予約を防ぐ）
type CartReservation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID   int64     `gorm:"not null;index" json:"buyer_id"`
	ArtworkID int64     `gorm:"not null;uniqueIndex" json:"artwork_id"`
	AddedAt   time.Time `gorm:"not null;index" json:"added_at"`
}

// ttl経過済みか（now - addedAt >= ttl）
func (r CartReservation) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.AddedAt) >= ttl
}
