package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"artmarket/internal/domain/model"
	"artmarket/internal/infra/messaging"
	repo "artmarket/internal/repository"
)

// スイープ1回で処理する最大件数
const sweepBatchSize = 500

// CartUsecase は /cart の業務ロジックです。
// カートの中身は「作品ごとの押さえ（CartReservation）」そのもの。
type CartUsecase struct {
	tx     repo.TransactionManager
	ttl    time.Duration
	clock  Clock
	events messaging.Publisher
	log    *zap.Logger
}

func NewCartUsecase(tx repo.TransactionManager, ttl time.Duration, clock Clock, events messaging.Publisher, log *zap.Logger) *CartUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CartUsecase{
		tx:     tx,
		ttl:    ttl,
		clock:  clock,
		events: orNopPublisher(events),
		log:    orNop(log),
	}
}

type CartItemResponse struct {
	ArtworkID int64           `json:"artwork_id"`
	SellerID  int64           `json:"seller_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

// GetCart は自分の押さえ一覧（期限付き）
func (u *CartUsecase) GetCart(ctx context.Context, buyerID int64) (CartResponse, error) {
	if buyerID <= 0 {
		return CartResponse{}, unauthorized()
	}

	out := CartResponse{Items: []CartItemResponse{}, Subtotal: decimal.Zero}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rows, err := r.Reservations().ListByBuyerID(ctx, buyerID)
		if err != nil {
			return dbError(err)
		}
		for _, res := range rows {
			a, err := r.Artworks().FindByID(ctx, res.ArtworkID)
			if errors.Is(err, repo.ErrNotFound) {
				// 削除済みの作品はスイーパーが片付ける
				continue
			}
			if err != nil {
				return dbError(err)
			}
			out.Items = append(out.Items, CartItemResponse{
				ArtworkID: a.ID,
				SellerID:  a.SellerID,
				Title:     a.Title,
				Price:     a.Price,
				AddedAt:   res.AddedAt,
				ExpiresAt: res.AddedAt.Add(u.ttl),
			})
			out.Subtotal = out.Subtotal.Add(a.Price)
		}
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// Reserve はカートに入れる。押さえ（is_available=false）と行作成を1トランザクションで。
func (u *CartUsecase) Reserve(ctx context.Context, buyerID int64, artworkID int64) (CartItemResponse, error) {
	if buyerID <= 0 {
		return CartItemResponse{}, unauthorized()
	}
	if artworkID <= 0 {
		return CartItemResponse{}, Validation("invalid artwork_id")
	}

	var out CartItemResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := r.Artworks().FindByID(ctx, artworkID)
		if err != nil {
			return wrapNotFound(err, "artwork not found")
		}

		// 誰かのカートに入っていれば（自分でも）Conflict
		if _, err := r.Reservations().FindByArtworkID(ctx, artworkID); err == nil {
			return Conflict("artwork already reserved")
		} else if !errors.Is(err, repo.ErrNotFound) {
			return dbError(err)
		}

		held, err := r.Artworks().HoldIfReservable(ctx, artworkID)
		if err != nil {
			return dbError(err)
		}
		if !held {
			return Conflict("artwork is not available")
		}

		res, err := r.Reservations().Create(ctx, model.CartReservation{
			BuyerID:   buyerID,
			ArtworkID: artworkID,
			AddedAt:   u.clock.Now(),
		})
		if errors.Is(err, repo.ErrDuplicate) {
			// 同時に入れられた（unique制約で負けた）
			return Conflict("artwork already reserved")
		}
		if err != nil {
			return dbError(err)
		}

		out = CartItemResponse{
			ArtworkID: a.ID,
			SellerID:  a.SellerID,
			Title:     a.Title,
			Price:     a.Price,
			AddedAt:   res.AddedAt,
			ExpiresAt: res.AddedAt.Add(u.ttl),
		}
		return nil
	})
	if err != nil {
		return CartItemResponse{}, err
	}

	publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventArtworkReserved, artworkKey(artworkID), map[string]any{
		"artwork_id": artworkID,
		"buyer_id":   buyerID,
	}))
	return out, nil
}

// Release はカートから外す。無ければ何もしない（冪等）。
// 他人の押さえは「存在しない扱い」で404。
func (u *CartUsecase) Release(ctx context.Context, buyerID int64, artworkID int64) error {
	if buyerID <= 0 {
		return unauthorized()
	}
	if artworkID <= 0 {
		return Validation("invalid artwork_id")
	}

	released := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		res, err := r.Reservations().FindByArtworkID(ctx, artworkID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dbError(err)
		}
		if res.BuyerID != buyerID {
			return NotFound("reservation not found")
		}

		deleted, err := r.Reservations().DeleteByArtworkID(ctx, artworkID)
		if err != nil {
			return dbError(err)
		}
		if !deleted {
			return nil
		}
		released = true
		if err := u.freeArtwork(ctx, r, artworkID); err != nil && !IsKind(err, KindNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if released {
		publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventArtworkReleased, artworkKey(artworkID), map[string]any{
			"artwork_id": artworkID,
			"reason":     "removed",
		}))
	}
	return nil
}

// SweepExpired は ttl を過ぎた押さえを1件ずつ別トランザクションで解放する。
// 1件失敗しても残りは続ける。解放した件数を返す。
func (u *CartUsecase) SweepExpired(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := u.clock.Now().Add(-ttl)

	var expired []model.CartReservation
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rows, err := r.Reservations().ListExpired(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return dbError(err)
		}
		expired = rows
		return nil
	})
	if err != nil {
		return 0, err
	}

	released := 0
	for _, res := range expired {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}

		ok, err := u.releaseExpired(ctx, res, cutoff)
		if err != nil {
			u.log.Error("release expired reservation failed",
				zap.Int64("reservation_id", res.ID),
				zap.Int64("artwork_id", res.ArtworkID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		released++
		publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventArtworkReleased, artworkKey(res.ArtworkID), map[string]any{
			"artwork_id": res.ArtworkID,
			"reason":     "expired",
		}))
	}

	if released > 0 {
		u.log.Info("expired reservations released", zap.Int("count", released), zap.Time("cutoff", cutoff))
	}
	return released, nil
}

func (u *CartUsecase) releaseExpired(ctx context.Context, res model.CartReservation, cutoff time.Time) (bool, error) {
	released := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 一覧取得後に注文・削除されていたら何もしない
		deleted, err := r.Reservations().DeleteIfExpired(ctx, res.ID, cutoff)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		released = true

		err = u.freeArtwork(ctx, r, res.ArtworkID)
		if IsKind(err, KindNotFound) {
			// 作品が消えていても押さえは消す
			u.log.Warn("expired reservation for missing artwork",
				zap.Int64("reservation_id", res.ID),
				zap.Int64("artwork_id", res.ArtworkID),
			)
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// 注文中・売却済みの作品は空けない
func (u *CartUsecase) freeArtwork(ctx context.Context, r repo.TxRepos, artworkID int64) error {
	a, err := r.Artworks().FindByID(ctx, artworkID)
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound("artwork not found")
	}
	if err != nil {
		return dbError(err)
	}
	if a.Status == model.ArtworkStatusInOrder || a.Status == model.ArtworkStatusSold {
		return nil
	}
	return setAvailability(ctx, r, artworkID, true)
}

// 注文に変わった押さえを消す。作品はIN_ORDERのまま（availabilityは戻さない）
func convertToOrder(ctx context.Context, r repo.TxRepos, buyerID int64, artworkIDs []int64) error {
	if _, err := r.Reservations().DeleteByBuyerAndArtworkIDs(ctx, buyerID, artworkIDs); err != nil {
		return dbError(err)
	}
	return nil
}
