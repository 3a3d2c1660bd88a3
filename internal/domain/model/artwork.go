package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ArtworkStatus string

const (
	ArtworkStatusUploaded ArtworkStatus = "UPLOADED"
	ArtworkStatusVerified ArtworkStatus = "VERIFIED"
	ArtworkStatusRejected ArtworkStatus = "REJECTED"
	ArtworkStatusInOrder  ArtworkStatus = "IN_ORDER"
	ArtworkStatusSold     ArtworkStatus = "SOLD"
)

type ArtworkCategory string

const (
	ArtworkCategoryPainting   ArtworkCategory = "PAINTING"
	ArtworkCategorySculpture  ArtworkCategory = "SCULPTURE"
	ArtworkCategoryLiterature ArtworkCategory = "LITERATURE"
)

// 作品（出品）
// IsAvailableは「カート/注文に押さえられていない」フラグ。statusとは独立。
type Artwork struct {
	ID       int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID int64           `gorm:"not null;index" json:"seller_id"`
	Title    string          `gorm:"type:varchar(255);not null" json:"title"`
	Category ArtworkCategory `gorm:"type:varchar(20);not null" json:"category"`

	Description string `gorm:"type:text" json:"description"`

	//価格（通貨単位、小数2桁）
	Price decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`

	//配送計算用（kg / cm）
	WeightKg decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"weight_kg"`
	LengthCm decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"length_cm"`
	WidthCm  decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"width_cm"`
	HeightCm decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"height_cm"`

	//画像は外部ストレージのキーだけ持つ
	ImageKey string `gorm:"type:varchar(255)" json:"image_key"`

	Status       ArtworkStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IsAvailable  bool          `gorm:"not null;default:true;index" json:"is_available"`
	RejectReason string        `gorm:"type:text" json:"reject_reason,omitempty"`

	//出品時に計算して保存（表示・監査用）
	Commission  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"commission"`
	NetEarnings decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"net_earnings"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 新規カートに入れられるか
func (a Artwork) Reservable() bool {
	return a.Status == ArtworkStatusVerified && a.IsAvailable
}

// 出品者が編集・削除できるか（押さえられている間と注文後は不可）
func (a Artwork) EditableBySeller() bool {
	if !a.IsAvailable {
		return false
	}
	switch a.Status {
	case ArtworkStatusUploaded, ArtworkStatusVerified, ArtworkStatusRejected:
		return true
	}
	return false
}

func ValidArtworkCategory(c ArtworkCategory) bool {
	switch c {
	case ArtworkCategoryPainting, ArtworkCategorySculpture, ArtworkCategoryLiterature:
		return true
	}
	return false
}
