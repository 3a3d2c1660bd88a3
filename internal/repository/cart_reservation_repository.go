package repository

import (
	"context"
	"time"

	"artmarket/internal/domain/model"
)

type CartReservationRepository interface {
	// artwork_idが既にあれば ErrDuplicate
	Create(ctx context.Context, r model.CartReservation) (model.CartReservation, error)
	FindByArtworkID(ctx context.Context, artworkID int64) (model.CartReservation, error)
	ListByBuyerID(ctx context.Context, buyerID int64) ([]model.CartReservation, error)

	// added_at <= cutoff のものを古い順に
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.CartReservation, error)

	// 消したらtrue（無ければfalse、エラーではない）
	DeleteByArtworkID(ctx context.Context, artworkID int64) (bool, error)
	// 期限切れのままなら消す（スイーパー用の再チェック）
	DeleteIfExpired(ctx context.Context, id int64, cutoff time.Time) (bool, error)
	DeleteByBuyerAndArtworkIDs(ctx context.Context, buyerID int64, artworkIDs []int64) (int64, error)
}
