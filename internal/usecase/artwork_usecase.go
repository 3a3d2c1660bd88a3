package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"artmarket/internal/domain/model"
	"artmarket/internal/domain/pricing"
	"artmarket/internal/infra/messaging"
	repo "artmarket/internal/repository"
)

type ArtworkUsecase struct {
	tx     repo.TransactionManager
	events messaging.Publisher
	log    *zap.Logger
	clock  Clock
}

// DI
func NewArtworkUsecase(tx repo.TransactionManager, events messaging.Publisher, log *zap.Logger, clock Clock) *ArtworkUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ArtworkUsecase{tx: tx, events: orNopPublisher(events), log: orNop(log), clock: clock}
}

// 出品・編集の入力（validatorで形式チェック済み）
type ArtworkInput struct {
	Title       string
	Category    model.ArtworkCategory
	Description string
	Price       decimal.Decimal
	WeightKg    decimal.Decimal
	LengthCm    decimal.Decimal
	WidthCm     decimal.Decimal
	HeightCm    decimal.Decimal
	ImageKey    string
}

func (in ArtworkInput) apply(a *model.Artwork) {
	a.Title = in.Title
	a.Category = in.Category
	a.Description = in.Description
	a.Price = in.Price.Round(2)
	a.WeightKg = in.WeightKg
	a.LengthCm = in.LengthCm
	a.WidthCm = in.WidthCm
	a.HeightCm = in.HeightCm
	a.ImageKey = in.ImageKey

	// 手数料は保存時だけ丸める
	commission, net := pricing.Commission(a.Price)
	a.Commission = commission.Round(2)
	a.NetEarnings = net.Round(2)
}

// 出品（UPLOADEDで作成、審査待ち）
func (u *ArtworkUsecase) Create(ctx context.Context, sellerID int64, in ArtworkInput) (model.Artwork, error) {
	if sellerID <= 0 {
		return model.Artwork{}, unauthorized()
	}

	a := model.Artwork{
		SellerID:    sellerID,
		Status:      model.ArtworkStatusUploaded,
		IsAvailable: true,
	}
	in.apply(&a)

	var out model.Artwork
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err := r.Artworks().Create(ctx, a)
		if err != nil {
			return dbError(err)
		}
		out = created
		return nil
	})
	if err != nil {
		return model.Artwork{}, err
	}

	u.log.Info("artwork uploaded", zap.Int64("artwork_id", out.ID), zap.Int64("seller_id", sellerID))
	return out, nil
}

// 編集すると再審査（UPLOADED）に戻り、手数料も再計算
func (u *ArtworkUsecase) Update(ctx context.Context, sellerID int64, artworkID int64, in ArtworkInput) (model.Artwork, error) {
	if sellerID <= 0 {
		return model.Artwork{}, unauthorized()
	}

	var out model.Artwork
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := u.lockOwned(ctx, r, sellerID, artworkID)
		if err != nil {
			return err
		}

		in.apply(&a)
		a.Status = model.ArtworkStatusUploaded
		a.RejectReason = ""

		if err := r.Artworks().Update(ctx, a); err != nil {
			return wrapNotFound(err, "artwork not found")
		}
		out = a
		return nil
	})
	if err != nil {
		return model.Artwork{}, err
	}
	return out, nil
}

func (u *ArtworkUsecase) Delete(ctx context.Context, sellerID int64, artworkID int64) error {
	if sellerID <= 0 {
		return unauthorized()
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := u.lockOwned(ctx, r, sellerID, artworkID); err != nil {
			return err
		}
		if err := r.Artworks().SoftDelete(ctx, artworkID); err != nil {
			return wrapNotFound(err, "artwork not found")
		}
		return nil
	})
}

func (u *ArtworkUsecase) Get(ctx context.Context, artworkID int64) (model.Artwork, error) {
	var out model.Artwork
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := r.Artworks().FindByID(ctx, artworkID)
		if err != nil {
			return wrapNotFound(err, "artwork not found")
		}
		out = a
		return nil
	})
	if err != nil {
		return model.Artwork{}, err
	}
	return out, nil
}

// 審査OK（UPLOADED/VERIFIED -> VERIFIED）。availabilityは触らない
func (u *ArtworkUsecase) Verify(ctx context.Context, adminID int64, artworkID int64) (model.Artwork, error) {
	return u.moderate(ctx, adminID, artworkID, model.ArtworkStatusVerified, "", model.AuditActionVerifyArtwork)
}

// 審査NG。理由を保存する
func (u *ArtworkUsecase) Reject(ctx context.Context, adminID int64, artworkID int64, reason string) (model.Artwork, error) {
	return u.moderate(ctx, adminID, artworkID, model.ArtworkStatusRejected, reason, model.AuditActionRejectArtwork)
}

func (u *ArtworkUsecase) moderate(ctx context.Context, adminID int64, artworkID int64, to model.ArtworkStatus, reason string, action model.AuditAction) (model.Artwork, error) {
	if adminID <= 0 {
		return model.Artwork{}, unauthorized()
	}

	var out model.Artwork
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//カート追加と競合しないよう行ロック
		rows, err := r.Artworks().FindByIDsForUpdate(ctx, []int64{artworkID})
		if err != nil {
			return dbError(err)
		}
		if len(rows) == 0 {
			return NotFound("artwork not found")
		}
		before := rows[0]

		from := []model.ArtworkStatus{model.ArtworkStatusUploaded, model.ArtworkStatusVerified}
		ok, err := r.Artworks().UpdateStatus(ctx, artworkID, from, to, reason)
		if err != nil {
			return dbError(err)
		}
		if !ok {
			return InvalidState("artwork cannot be moderated in status " + string(before.Status))
		}

		// 却下された作品はカートに残さない
		if to == model.ArtworkStatusRejected {
			deleted, err := r.Reservations().DeleteByArtworkID(ctx, artworkID)
			if err != nil {
				return dbError(err)
			}
			if deleted || !before.IsAvailable {
				if err := setAvailability(ctx, r, artworkID, true); err != nil {
					return err
				}
			}
		}

		after, err := r.Artworks().FindByID(ctx, artworkID)
		if err != nil {
			return dbError(err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       action,
			ResourceType: model.AuditResourceArtwork,
			ResourceID:   artworkID,
			BeforeJSON:   statusJSON(string(before.Status), before.RejectReason),
			AfterJSON:    statusJSON(string(after.Status), after.RejectReason),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return dbError(err)
		}

		out = after
		return nil
	})
	if err != nil {
		return model.Artwork{}, err
	}

	publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventArtworkModerated, artworkKey(artworkID), map[string]any{
		"artwork_id": artworkID,
		"status":     out.Status,
	}))
	return out, nil
}

// 自分の作品を行ロックして取る。押さえ中・注文中・売却済みは触れない
func (u *ArtworkUsecase) lockOwned(ctx context.Context, r repo.TxRepos, sellerID int64, artworkID int64) (model.Artwork, error) {
	rows, err := r.Artworks().FindByIDsForUpdate(ctx, []int64{artworkID})
	if err != nil {
		return model.Artwork{}, dbError(err)
	}
	if len(rows) == 0 {
		return model.Artwork{}, NotFound("artwork not found")
	}
	a := rows[0]
	if a.SellerID != sellerID {
		return model.Artwork{}, Forbidden("not your artwork")
	}
	if !a.EditableBySeller() {
		return model.Artwork{}, Conflict("artwork is reserved, in an order or sold")
	}
	return a, nil
}

func wrapNotFound(err error, msg string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound(msg)
	}
	return wrapRepoErr(err)
}

func statusJSON(status string, reason string) string {
	m := map[string]string{"status": status}
	if reason != "" {
		m["reject_reason"] = reason
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func artworkKey(id int64) string {
	return "artwork-" + idString(id)
}

func orderKey(id int64) string {
	return "order-" + idString(id)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
