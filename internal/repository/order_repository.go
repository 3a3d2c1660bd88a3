package repository

import (
	"context"
	"time"

	"artmarket/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page    int
	Limit   int
	Status  string
	BuyerID *int64
	From    *time.Time
	To      *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByBuyerID(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error)

	// その決済Intentを使った注文があるか
	ExistsByPaymentIntentID(ctx context.Context, intentID string) (bool, error)

	// 作品を含むキャンセルされていない注文
	FindOpenByArtworkID(ctx context.Context, artworkID int64) (model.Order, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}

type OrderArtworkRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderArtwork) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderArtwork, error)
}
