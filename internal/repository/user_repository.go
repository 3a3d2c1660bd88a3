package repository

import (
	"artmarket/internal/domain/model"
	"context"
	"errors"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// ユーザー情報は外部管理。ここでは参照と送金先口座の紐付けだけ。
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)

	// 送金先口座IDを保存。未設定のときだけ。別の口座が既にあればErrDuplicate
	SetPayoutAccountID(ctx context.Context, userID int64, accountID string) error
}
