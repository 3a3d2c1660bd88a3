package repository

import (
	"context"

	"gorm.io/gorm"

	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
)

// ユーザーは外部の認証サービスが作る。ここでは読むのと口座IDの紐付けだけ
type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

func (r *UserGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if isNotFound(err) {
			return nil, repo.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// 空のときだけ書く（同じIDの再設定はOK）。別の口座が入っていればErrDuplicate
func (r *UserGormRepository) SetPayoutAccountID(ctx context.Context, id int64, accountID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Where("payout_account_id IS NULL OR payout_account_id = '' OR payout_account_id = ?", accountID).
		Update("payout_account_id", accountID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// 0件: ユーザーがいないのか、別の口座が入っているのか
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return repo.ErrDuplicate
}

var _ repo.UserRepository = (*UserGormRepository)(nil)
