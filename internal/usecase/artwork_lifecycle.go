package usecase

import (
	"context"
	"errors"
	"fmt"

	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
)

// 作品の状態遷移はここに集める（usecaseから直接statusを書き換えない）

// IN_ORDERにまとめて移す。1件でもダメなら何も変えずにConflict。
// 自分（buyerID）のカートに入っている作品は押さえ済みでもOK。
func markInOrder(ctx context.Context, r repo.TxRepos, buyerID int64, artworks []model.Artwork) error {
	ids := make([]int64, 0, len(artworks))
	for _, a := range artworks {
		if a.Status != model.ArtworkStatusVerified {
			return Conflict(fmt.Sprintf("artwork %d is not available", a.ID))
		}
		if !a.IsAvailable {
			res, err := r.Reservations().FindByArtworkID(ctx, a.ID)
			if errors.Is(err, repo.ErrNotFound) {
				return Conflict(fmt.Sprintf("artwork %d is not available", a.ID))
			}
			if err != nil {
				return dbError(err)
			}
			if res.BuyerID != buyerID {
				return Conflict(fmt.Sprintf("artwork %d is reserved by another buyer", a.ID))
			}
		}
		ids = append(ids, a.ID)
	}

	n, err := r.Artworks().MarkInOrder(ctx, ids)
	if err != nil {
		return dbError(err)
	}
	// 行ロック中なのでここに来ることはないはず
	if n != int64(len(ids)) {
		return Conflict("artworks changed during checkout")
	}
	return nil
}

// IN_ORDER -> SOLD（送金成功後）
func markSold(ctx context.Context, r repo.TxRepos, artworkID int64) error {
	ok, err := r.Artworks().UpdateStatus(ctx, artworkID, []model.ArtworkStatus{model.ArtworkStatusInOrder}, model.ArtworkStatusSold, "")
	if err != nil {
		return dbError(err)
	}
	if !ok {
		return transitionError(ctx, r, artworkID, "artwork is not in an order")
	}
	return nil
}

// IN_ORDER -> VERIFIED（注文キャンセル時）。残っているカートの押さえも消す。
func revertToVerified(ctx context.Context, r repo.TxRepos, artworkID int64) error {
	ok, err := r.Artworks().UpdateStatus(ctx, artworkID, []model.ArtworkStatus{model.ArtworkStatusInOrder}, model.ArtworkStatusVerified, "")
	if err != nil {
		return dbError(err)
	}
	if !ok {
		return transitionError(ctx, r, artworkID, "artwork is not in an order")
	}
	if _, err := r.Reservations().DeleteByArtworkID(ctx, artworkID); err != nil {
		return dbError(err)
	}
	return setAvailability(ctx, r, artworkID, true)
}

// statusは触らない
func setAvailability(ctx context.Context, r repo.TxRepos, artworkID int64, available bool) error {
	err := r.Artworks().SetAvailability(ctx, artworkID, available)
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound("artwork not found")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

// CASが外れたとき: 存在しないなら404、あるなら状態エラー
func transitionError(ctx context.Context, r repo.TxRepos, artworkID int64, msg string) error {
	_, err := r.Artworks().FindByID(ctx, artworkID)
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound("artwork not found")
	}
	if err != nil {
		return dbError(err)
	}
	return InvalidState(msg)
}
