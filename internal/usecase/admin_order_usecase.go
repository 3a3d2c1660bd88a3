package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"artmarket/internal/domain/model"
	"artmarket/internal/infra/messaging"
	"artmarket/internal/payments"
	repo "artmarket/internal/repository"
)

type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	gateway  payments.Gateway
	currency string
	events   messaging.Publisher
	log      *zap.Logger
	clock    Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, gateway payments.Gateway, currency string, events messaging.Publisher, log *zap.Logger, clock Clock) *AdminOrderUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AdminOrderUsecase{
		tx:       tx,
		gateway:  gateway,
		currency: currency,
		events:   orNopPublisher(events),
		log:      orNop(log),
		clock:    clock,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, Validation("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, Validation("invalid limit")
	}
	if f.Status != "" && !model.ValidOrderStatus(model.OrderStatus(f.Status)) {
		return []OrderOutput{}, Validation("invalid status")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderArtworks().ListByOrderID(ctx, o.ID)
			if err != nil {
				return dbError(err)
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 注文の操作履歴（監査ログ）
func (u *AdminOrderUsecase) History(ctx context.Context, orderID int64) ([]model.AuditLog, error) {
	if orderID <= 0 {
		return []model.AuditLog{}, Validation("invalid id")
	}
	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			return wrapNotFound(err, "order not found")
		}
		rows, err := r.AuditLogs().List(ctx, repo.ForResource(model.AuditResourceOrder, orderID, 200))
		if err != nil {
			return dbError(err)
		}
		logs = rows
		return nil
	})
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

// ステータス更新。前進のみ（スキップ可）、またはキャンセル。
// キャンセルは送金が1件でも始まっていれば拒否（何も戻さない）。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, unauthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, Validation("invalid id")
	}

	newStatus := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !model.ValidOrderStatus(newStatus) {
		return OrderOutput{}, Validation("invalid status")
	}

	var out OrderOutput
	changed := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return wrapNotFound(err, "order not found")
		}

		items, err := r.OrderArtworks().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			out = toOrderOutput(o, items)
			return nil
		}
		if !o.Status.CanTransitionTo(newStatus) {
			return InvalidState(fmt.Sprintf("cannot change order from %s to %s", o.Status, newStatus))
		}

		// newStatusがCANCELLEDのときだけ作品を戻す
		if newStatus == model.OrderStatusCancelled {
			if err := u.cancel(ctx, r, items); err != nil {
				return err
			}
		}

		// ステータス更新
		beforeStatus := o.Status
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return wrapNotFound(err, "order not found")
		}

		// ★監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   statusJSON(string(beforeStatus), ""),
			AfterJSON:    statusJSON(string(newStatus), ""),
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return dbError(err)
		}

		o.Status = newStatus
		out = toOrderOutput(o, items)
		changed = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if changed {
		u.log.Info("order status updated",
			zap.Int64("order_id", orderID),
			zap.String("status", string(newStatus)),
			zap.Int64("actor_user_id", actorAdminUserID),
		)
		publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventOrderStatus, orderKey(orderID), map[string]any{
			"order_id": orderID,
			"status":   newStatus,
		}))
	}
	return out, nil
}

// 先に全部チェックしてから戻す（途中で失敗したらtxごと巻き戻る）
func (u *AdminOrderUsecase) cancel(ctx context.Context, r repo.TxRepos, items []model.OrderArtwork) error {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ArtworkID)
	}
	if len(ids) == 0 {
		return nil
	}

	paid, err := r.Payouts().ExistsBlockingForArtworks(ctx, ids)
	if err != nil {
		return dbError(err)
	}
	if paid {
		return Conflict("order has an artwork already paid out to its seller")
	}

	// ロック順をそろえる
	if _, err := r.Artworks().FindByIDsForUpdate(ctx, uniqueIDs(ids)); err != nil {
		return dbError(err)
	}
	for _, id := range ids {
		if err := revertToVerified(ctx, r, id); err != nil {
			return err
		}
	}
	return nil
}

type PayoutOutput struct {
	ArtworkID  int64           `json:"artwork_id"`
	OrderID    int64           `json:"order_id"`
	SellerID   int64           `json:"seller_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	TransferID string          `json:"transfer_id"`
}

// SendSellerPayout は作品1点分の手取りを出品者へ送金し、成功したらSOLDにする。
// 外部呼び出しはトランザクションの外で行う。
func (u *AdminOrderUsecase) SendSellerPayout(ctx context.Context, actorAdminUserID int64, artworkID int64) (PayoutOutput, error) {
	if actorAdminUserID <= 0 {
		return PayoutOutput{}, unauthorized()
	}
	if artworkID <= 0 {
		return PayoutOutput{}, Validation("invalid artwork_id")
	}

	// 1) 送金を予約（PENDING）。この間はキャンセル不可になる
	var p model.Payout
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		claimed, err := u.claimPayout(ctx, r, artworkID)
		if err != nil {
			return err
		}
		p = claimed
		return nil
	})
	if err != nil {
		return PayoutOutput{}, err
	}

	// 2) 外部送金（リトライしない）
	transferID, terr := u.gateway.Transfer(ctx, payments.TransferRequest{
		AccountID:      p.AccountID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		IdempotencyKey: p.IdempotencyKey,
		Metadata: map[string]string{
			"artwork_id": idString(p.ArtworkID),
			"order_id":   idString(p.OrderID),
		},
	})
	// 以降の記録はリクエストが切れても残す
	bg := context.WithoutCancel(ctx)
	if terr != nil {
		return PayoutOutput{}, u.recordTransferError(bg, p, terr)
	}

	// 3) 完了記録 + SOLD
	err = u.tx.WithinTx(bg, func(r repo.TxRepos) error {
		if err := r.Payouts().MarkCompleted(bg, p.ID, transferID); err != nil {
			return dbError(err)
		}
		if err := markSold(bg, r, artworkID); err != nil {
			return err
		}
		return r.AuditLogs().Create(bg, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionSellerPayout,
			ResourceType: model.AuditResourceArtwork,
			ResourceID:   artworkID,
			BeforeJSON:   statusJSON(string(model.ArtworkStatusInOrder), ""),
			AfterJSON:    statusJSON(string(model.ArtworkStatusSold), ""),
			CreatedAt:    u.clock.Now(),
		})
	})
	if err != nil {
		// 送金は済んでいる。PENDINGのまま残るのでキャンセルはできない
		u.log.Error("payout sent but completion not recorded",
			zap.Int64("payout_id", p.ID),
			zap.String("transfer_id", transferID),
			zap.Error(err),
		)
		return PayoutOutput{}, wrapRepoErr(err)
	}

	u.log.Info("seller paid out",
		zap.Int64("artwork_id", artworkID),
		zap.Int64("seller_id", p.SellerID),
		zap.String("transfer_id", transferID),
	)
	publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventSellerPaidOut, artworkKey(artworkID), map[string]any{
		"artwork_id":  artworkID,
		"order_id":    p.OrderID,
		"seller_id":   p.SellerID,
		"transfer_id": transferID,
	}))

	return PayoutOutput{
		ArtworkID:  artworkID,
		OrderID:    p.OrderID,
		SellerID:   p.SellerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     string(model.PayoutStatusCompleted),
		TransferID: transferID,
	}, nil
}

// 拒否ならFAILED（送金なし）、それ以外はUNKNOWN（送金済みかもしれない）
func (u *AdminOrderUsecase) recordTransferError(ctx context.Context, p model.Payout, terr error) error {
	rejected := payments.IsRejected(terr)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if rejected {
			return r.Payouts().MarkFailed(ctx, p.ID, terr.Error())
		}
		return r.Payouts().MarkUnknown(ctx, p.ID, terr.Error())
	})
	if err != nil {
		u.log.Error("record payout failure", zap.Int64("payout_id", p.ID), zap.Error(err))
	}

	fields := []zap.Field{
		zap.Int64("artwork_id", p.ArtworkID),
		zap.Int64("seller_id", p.SellerID),
		zap.String("idempotency_key", p.IdempotencyKey),
		zap.Error(terr),
	}
	if rejected {
		u.log.Error("seller payout rejected", fields...)
		return PaymentError("seller payout rejected by provider", terr)
	}
	u.log.Error("seller payout outcome unknown; retry reuses the same key", fields...)
	return PaymentError("seller payout outcome unknown, retry to resolve", terr)
}

func (u *AdminOrderUsecase) claimPayout(ctx context.Context, r repo.TxRepos, artworkID int64) (model.Payout, error) {
	rows, err := r.Artworks().FindByIDsForUpdate(ctx, []int64{artworkID})
	if err != nil {
		return model.Payout{}, dbError(err)
	}
	if len(rows) == 0 {
		return model.Payout{}, NotFound("artwork not found")
	}
	a := rows[0]
	if a.Status == model.ArtworkStatusSold {
		return model.Payout{}, Conflict("artwork already paid out")
	}
	if a.Status != model.ArtworkStatusInOrder {
		return model.Payout{}, InvalidState("artwork is not in an order")
	}

	order, err := r.Orders().FindOpenByArtworkID(ctx, artworkID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Payout{}, InvalidState("artwork has no open order")
	}
	if err != nil {
		return model.Payout{}, dbError(err)
	}

	seller, err := r.Users().FindByID(ctx, a.SellerID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return model.Payout{}, NotFound("seller not found")
	}
	if err != nil {
		return model.Payout{}, dbError(err)
	}
	if strings.TrimSpace(seller.PayoutAccountID) == "" {
		return model.Payout{}, PreconditionFailed("seller has no payout account")
	}
	if !a.NetEarnings.IsPositive() {
		return model.Payout{}, InvalidState("artwork has no earnings to pay out")
	}

	existing, err := r.Payouts().FindByArtworkID(ctx, artworkID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		p, err := r.Payouts().Create(ctx, model.Payout{
			ArtworkID:      artworkID,
			OrderID:        order.ID,
			SellerID:       a.SellerID,
			AccountID:      seller.PayoutAccountID,
			Amount:         a.NetEarnings,
			Currency:       u.currency,
			Status:         model.PayoutStatusPending,
			IdempotencyKey: payoutKey(artworkID),
			Attempts:       1,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return model.Payout{}, Conflict("payout already in progress")
		}
		if err != nil {
			return model.Payout{}, dbError(err)
		}
		return p, nil
	case err != nil:
		return model.Payout{}, dbError(err)
	}

	switch existing.Status {
	case model.PayoutStatusPending:
		return model.Payout{}, Conflict("payout already in progress")
	case model.PayoutStatusCompleted:
		return model.Payout{}, Conflict("payout already completed")
	}

	// UNKNOWN -> 同じキーで再送（送金済みならプロバイダが同じ結果を返す）
	// FAILED -> 拒否が記録されたキーは使えないので試行回数つきの新しいキー
	key := existing.IdempotencyKey
	if existing.Status == model.PayoutStatusFailed {
		key = retryPayoutKey(artworkID, existing.Attempts+1)
	}
	ok, err := r.Payouts().Retry(ctx, existing.ID, existing.Status, key)
	if err != nil {
		return model.Payout{}, dbError(err)
	}
	if !ok {
		return model.Payout{}, Conflict("payout already in progress")
	}
	existing.Status = model.PayoutStatusPending
	existing.IdempotencyKey = key
	existing.Attempts++
	return existing, nil
}

func payoutKey(artworkID int64) string {
	return "payout-artwork-" + idString(artworkID)
}

func retryPayoutKey(artworkID int64, attempt int) string {
	return payoutKey(artworkID) + "-attempt-" + strconv.Itoa(attempt)
}

// 期間パラメータでtime.Timeが必要なら、handlerでtime.Parseしてここに入れる
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
