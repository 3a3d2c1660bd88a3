package model

import "time"

type AuditAction string

const (
	AuditActionVerifyArtwork     AuditAction = "VERIFY_ARTWORK"
	AuditActionRejectArtwork     AuditAction = "REJECT_ARTWORK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionSellerPayout      AuditAction = "SELLER_PAYOUT"
)

type AuditResourceType string

const (
	AuditResourceArtwork AuditResourceType = "artwork"
	AuditResourceOrder   AuditResourceType = "order"
)

// AuditLog は管理者操作の記録（追記のみ）。
// Before/Afterは {"status": ..., "reject_reason": ...} のJSON文字列。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_resource,priority:1" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource,priority:2" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:jsonb;not null;default:'{}'" json:"before"`
	AfterJSON    string            `gorm:"type:jsonb;not null;default:'{}'" json:"after"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
