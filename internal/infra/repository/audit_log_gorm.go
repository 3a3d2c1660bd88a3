package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// 監査ログは追記のみ（更新・削除しない）
type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, l model.AuditLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.BeforeJSON == "" {
		l.BeforeJSON = "{}"
	}
	if l.AfterJSON == "" {
		l.AfterJSON = "{}"
	}
	return translate(r.db.WithContext(ctx).Create(&l).Error)
}

// 新しい順。同時刻はid降順
func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Model(&model.AuditLog{}).
		Scopes(auditFilter(f), paginate(f.Limit, f.Offset)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

func auditFilter(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.ActorUserID != nil {
			q = q.Where("actor_user_id = ?", *f.ActorUserID)
		}
		if f.Action != nil {
			q = q.Where("action = ?", *f.Action)
		}
		// 対象は種別とIDの組で引く（index: resource_type, resource_id）
		if f.ResourceType != nil {
			q = q.Where("resource_type = ?", *f.ResourceType)
		}
		if f.ResourceID != nil {
			q = q.Where("resource_id = ?", *f.ResourceID)
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at <= ?", *f.CreatedTo)
		}
		return q
	}
}

func paginate(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(limit).Offset(offset)
	}
}
