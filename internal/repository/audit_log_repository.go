package repository

import (
	"context"
	"time"

	"artmarket/internal/domain/model"
)

// nilの条件は絞り込まない
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// ForResource は1つの作品・注文の履歴用
func ForResource(t model.AuditResourceType, id int64, limit int) AuditLogFilter {
	return AuditLogFilter{ResourceType: &t, ResourceID: &id, Limit: limit}
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
