package model

import "time"

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// 認証・登録は外部。ここでは送金先口座と連絡先だけ使う。
type User struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Email           string `gorm:"uniqueIndex;not null"`
	Username        string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Role            Role   `gorm:"type:varchar(20);not null;default:'BUYER'"`
	TokenVersion    int    `gorm:"not null;default:0"`
	IsActive        bool   `gorm:"not null;default:true"`
	PayoutAccountID string `gorm:"type:varchar(255)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
