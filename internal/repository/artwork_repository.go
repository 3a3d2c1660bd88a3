package repository

import (
	"context"

	"artmarket/internal/domain/model"
)

// 作品の永続化。状態の条件付き更新（compare-and-set）もここで約束する。
type ArtworkRepository interface {
	FindByID(ctx context.Context, id int64) (model.Artwork, error)

	// 行ロック付きでまとめて取得（id順）。見つからないIDは結果に含まれない。
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Artwork, error)

	Create(ctx context.Context, a model.Artwork) (model.Artwork, error)

	// 出品者が編集できる項目＋status/手数料を更新
	Update(ctx context.Context, a model.Artwork) error

	SoftDelete(ctx context.Context, id int64) error

	// statusがfromのどれかのときだけtoに変える。変えたらtrue
	UpdateStatus(ctx context.Context, id int64, from []model.ArtworkStatus, to model.ArtworkStatus, reason string) (bool, error)

	SetAvailability(ctx context.Context, id int64, available bool) error

	// VERIFIEDかつavailableのときだけ押さえる（is_available=false）
	HoldIfReservable(ctx context.Context, id int64) (bool, error)

	// VERIFIED -> IN_ORDER（is_available=false）。更新件数を返す
	MarkInOrder(ctx context.Context, ids []int64) (int64, error)
}
