package repository

import (
	"context"

	"artmarket/internal/domain/model"
)

type PayoutRepository interface {
	FindByArtworkID(ctx context.Context, artworkID int64) (model.Payout, error)

	// PENDINGで作成。既にあれば ErrDuplicate
	Create(ctx context.Context, p model.Payout) (model.Payout, error)

	// from(FAILED/UNKNOWN) -> PENDING（手動再送金）。attemptsを1増やす
	Retry(ctx context.Context, id int64, from model.PayoutStatus, idempotencyKey string) (bool, error)

	// 以下はPENDINGからのみ
	MarkCompleted(ctx context.Context, id int64, transferID string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	MarkUnknown(ctx context.Context, id int64, reason string) error

	// PENDING/COMPLETED/UNKNOWNが1件でもあるか
	ExistsBlockingForArtworks(ctx context.Context, artworkIDs []int64) (bool, error)
}
