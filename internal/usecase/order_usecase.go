package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"artmarket/internal/domain/model"
	"artmarket/internal/domain/pricing"
	"artmarket/internal/infra/messaging"
	"artmarket/internal/payments"
	repo "artmarket/internal/repository"
)

type OrderUsecase struct {
	tx       repo.TransactionManager
	gateway  payments.Gateway
	currency string
	events   messaging.Publisher
	log      *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, gateway payments.Gateway, currency string, events messaging.Publisher, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		gateway:  gateway,
		currency: currency,
		events:   orNopPublisher(events),
		log:      orNop(log),
	}
}

type ShippingAddress struct {
	Name         string
	AddressLine1 string
	AddressLine2 string
	City         string
	PostalCode   string
	Country      string
	Phone        string
}

type CreateOrderInput struct {
	ArtworkIDs []int64
	Address    ShippingAddress
	// create-payment-intentで作った決済（任意）。保存に失敗したら取り消す
	PaymentIntentID string
	IdempotencyKey  string
}

type OrderArtworkOutput struct {
	ArtworkID    int64           `json:"artwork_id"`
	SellerID     int64           `json:"seller_id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

type OrderOutput struct {
	ID              int64                `json:"id"`
	BuyerID         int64                `json:"buyer_id"`
	Status          string               `json:"status"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	ShippingCost    decimal.Decimal      `json:"shipping_cost"`
	TotalPrice      decimal.Decimal      `json:"total_price"`
	ShippingName    string               `json:"shipping_name"`
	AddressLine1    string               `json:"address_line1"`
	AddressLine2    string               `json:"address_line2,omitempty"`
	City            string               `json:"city"`
	PostalCode      string               `json:"postal_code"`
	Country         string               `json:"country"`
	Phone           string               `json:"phone,omitempty"`
	PaymentIntentID string               `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	Artworks        []OrderArtworkOutput `json:"artworks"`
}

// CreateOrder は1トランザクションで注文を作る。
// 1点でも買えなければ全体をConflictにして何も変えない。
func (u *OrderUsecase) CreateOrder(ctx context.Context, buyerID int64, in CreateOrderInput) (OrderOutput, error) {
	if buyerID <= 0 {
		return OrderOutput{}, unauthorized()
	}
	ids := uniqueIDs(in.ArtworkIDs)
	if len(ids) == 0 {
		return OrderOutput{}, Validation("artwork_ids is required")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, Validation("invalid idempotency_key")
	}
	if key == "" {
		key = uuid.NewString()
	}

	var out OrderOutput
	var total *decimal.Decimal
	replayed := false

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, buyerID, key)
		if err != nil {
			return dbError(err)
		}
		if found {
			replayed = true
			return u.loadOutput(ctx, r, existing, &out)
		}

		rate, err := r.ShippingRates().FindByCountry(ctx, in.Address.Country)
		if err != nil {
			return wrapNotFound(err, "shipping rate not found for country")
		}

		//行ロックしてから判定する
		artworks, err := r.Artworks().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return dbError(err)
		}
		if len(artworks) != len(ids) {
			return NotFound("artwork not found")
		}

		if err := markInOrder(ctx, r, buyerID, artworks); err != nil {
			return err
		}

		subtotal := decimal.Zero
		shipping := decimal.Zero
		lines := make([]model.OrderArtwork, 0, len(artworks))
		for _, a := range artworks {
			cost := pricing.ShippingCost(rate, pricing.ParcelOf(a))
			subtotal = subtotal.Add(a.Price)
			shipping = shipping.Add(cost)

			//スナップショット
			lines = append(lines, model.OrderArtwork{
				ArtworkID:     a.ID,
				SellerID:      a.SellerID,
				TitleSnapshot: a.Title,
				PriceSnapshot: a.Price,
				ShippingCost:  cost.Round(2),
			})
		}

		// 丸めるのは保存する合計だけ
		shipping = shipping.Round(2)
		sum := subtotal.Add(shipping)
		total = &sum

		if err := convertToOrder(ctx, r, buyerID, ids); err != nil {
			return err
		}

		order := model.Order{
			BuyerID:         buyerID,
			Status:          model.OrderStatusPending,
			Subtotal:        subtotal,
			ShippingCost:    shipping,
			TotalPrice:      sum,
			ShippingName:    in.Address.Name,
			AddressLine1:    in.Address.AddressLine1,
			AddressLine2:    in.Address.AddressLine2,
			City:            in.Address.City,
			PostalCode:      in.Address.PostalCode,
			Country:         in.Address.Country,
			Phone:           in.Address.Phone,
			PaymentIntentID: in.PaymentIntentID,
			IdempotencyKey:  key,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrDuplicate) {
			return Conflict("idempotency conflict")
		}
		if err != nil {
			return dbError(err)
		}
		order.ID = orderID

		//注文明細一括作成
		if err := r.OrderArtworks().CreateBulk(ctx, orderID, lines); err != nil {
			return dbError(err)
		}

		created, err := r.Orders().FindByID(ctx, orderID)
		if err == nil {
			order = created
		}
		out = toOrderOutput(order, lines)
		return nil
	})
	if err != nil {
		u.compensateCharge(ctx, buyerID, in.PaymentIntentID, total, err)
		return OrderOutput{}, err
	}

	if !replayed {
		u.log.Info("order created",
			zap.Int64("order_id", out.ID),
			zap.Int64("buyer_id", buyerID),
			zap.String("total", out.TotalPrice.StringFixed(2)),
		)
		publish(ctx, u.events, u.log, messaging.NewEvent(messaging.EventOrderCreated, orderKey(out.ID), out))
	}
	return out, nil
}

// 注文を保存できなかったときは決済を取り消す（失敗したらログのみ、手動で照合）
// 本人のIntentで、他の注文に使われておらず、金額が合うときだけ。
func (u *OrderUsecase) compensateCharge(ctx context.Context, buyerID int64, intentID string, total *decimal.Decimal, cause error) {
	if intentID == "" || u.gateway == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	fields := []zap.Field{
		zap.String("payment_intent_id", intentID),
		zap.Int64("buyer_id", buyerID),
		zap.NamedError("cause", cause),
	}

	ch, err := u.gateway.LookupCharge(ctx, intentID)
	if err != nil {
		u.log.Error("charge compensation skipped: lookup failed", append(fields, zap.Error(err))...)
		return
	}
	if ch.Metadata["buyer_id"] != idString(buyerID) {
		u.log.Warn("charge compensation skipped: payment intent belongs to another buyer", fields...)
		return
	}
	if total != nil && payments.MinorUnits(ch.Amount) != payments.MinorUnits(*total) {
		u.log.Warn("charge compensation skipped: amount does not match order total",
			append(fields, zap.String("intent_amount", ch.Amount.StringFixed(2)), zap.String("total", total.StringFixed(2)))...)
		return
	}

	attached := false
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		attached, err = r.Orders().ExistsByPaymentIntentID(ctx, intentID)
		return err
	})
	if err != nil {
		u.log.Error("charge compensation skipped: order lookup failed", append(fields, zap.Error(err))...)
		return
	}
	if attached {
		u.log.Warn("charge compensation skipped: payment intent already paid for an order", fields...)
		return
	}

	err = u.gateway.CancelCharge(ctx, payments.CancelChargeRequest{
		IntentID:       intentID,
		IdempotencyKey: "cancel-" + intentID,
	})
	if err != nil {
		u.log.Error("charge compensation failed; manual reconciliation required", append(fields, zap.Error(err))...)
		return
	}
	u.log.Warn("charge cancelled after order failure", fields...)
}

type PaymentIntentInput struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	IdempotencyKey  string
}

type PaymentIntentOutput struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// CreatePaymentIntent はカード決済の承認を作る（注文とは別ステップ）
func (u *OrderUsecase) CreatePaymentIntent(ctx context.Context, buyerID int64, in PaymentIntentInput) (PaymentIntentOutput, error) {
	if buyerID <= 0 {
		return PaymentIntentOutput{}, unauthorized()
	}
	if !in.Amount.IsPositive() {
		return PaymentIntentOutput{}, Validation("amount must be positive")
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return PaymentIntentOutput{}, Validation("idempotency key is required")
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = u.currency
	}

	ch, err := u.gateway.Charge(ctx, payments.ChargeRequest{
		Amount:          in.Amount,
		Currency:        currency,
		PaymentMethodID: in.PaymentMethodID,
		IdempotencyKey:  in.IdempotencyKey,
		Metadata:        map[string]string{"buyer_id": idString(buyerID)},
	})
	if err != nil {
		u.log.Error("create payment intent failed", zap.Int64("buyer_id", buyerID), zap.Error(err))
		return PaymentIntentOutput{}, PaymentError("payment provider rejected the charge", err)
	}
	return PaymentIntentOutput{ClientSecret: ch.ClientSecret, PaymentIntentID: ch.IntentID}, nil
}

type ConfirmPaymentInput struct {
	ClientSecret    string
	PaymentMethodID string
	IdempotencyKey  string
}

type ConfirmPaymentOutput struct {
	Status payments.ChargeStatus `json:"status"`
}

func (u *OrderUsecase) ConfirmPayment(ctx context.Context, buyerID int64, in ConfirmPaymentInput) (ConfirmPaymentOutput, error) {
	if buyerID <= 0 {
		return ConfirmPaymentOutput{}, unauthorized()
	}
	if strings.TrimSpace(in.ClientSecret) == "" {
		return ConfirmPaymentOutput{}, Validation("client_secret is required")
	}

	status, err := u.gateway.ConfirmCharge(ctx, payments.ConfirmChargeRequest{
		ClientSecret:    in.ClientSecret,
		PaymentMethodID: in.PaymentMethodID,
		IdempotencyKey:  in.IdempotencyKey,
	})
	if err != nil {
		u.log.Error("confirm payment failed", zap.Int64("buyer_id", buyerID), zap.Error(err))
		return ConfirmPaymentOutput{}, PaymentError("payment confirmation failed", err)
	}
	return ConfirmPaymentOutput{Status: status}, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, buyerID int64) ([]OrderOutput, error) {
	if buyerID <= 0 {
		return []OrderOutput{}, unauthorized()
	}

	//ページングでまずは固定で取る
	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByBuyerID(ctx, buyerID, 1, 50)
		if err != nil {
			return dbError(err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			var out OrderOutput
			if err := u.loadOutput(ctx, r, o, &out); err != nil {
				return err
			}
			outs = append(outs, out)
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, buyerID int64, orderID int64) (OrderOutput, error) {
	if buyerID <= 0 {
		return OrderOutput{}, unauthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, Validation("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return wrapNotFound(err, "order not found")
		}
		if o.BuyerID != buyerID {
			//他人の注文は「存在しない扱い」にする
			return NotFound("order not found")
		}
		return u.loadOutput(ctx, r, o, &out)
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) loadOutput(ctx context.Context, r repo.TxRepos, o model.Order, out *OrderOutput) error {
	items, err := r.OrderArtworks().ListByOrderID(ctx, o.ID)
	if err != nil {
		return dbError(err)
	}
	*out = toOrderOutput(o, items)
	return nil
}

func toOrderOutput(o model.Order, items []model.OrderArtwork) OrderOutput {
	outItems := make([]OrderArtworkOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderArtworkOutput{
			ArtworkID:    it.ArtworkID,
			SellerID:     it.SellerID,
			Title:        it.TitleSnapshot,
			Price:        it.PriceSnapshot,
			ShippingCost: it.ShippingCost,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		Status:          string(o.Status),
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		TotalPrice:      o.TotalPrice,
		ShippingName:    o.ShippingName,
		AddressLine1:    o.AddressLine1,
		AddressLine2:    o.AddressLine2,
		City:            o.City,
		PostalCode:      o.PostalCode,
		Country:         o.Country,
		Phone:           o.Phone,
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt,
		Artworks:        outItems,
	}
}

// 重複と0以下を除いて昇順に（ロック順をそろえる）
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
