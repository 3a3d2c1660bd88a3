package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"artmarket/internal/payments"
	repo "artmarket/internal/repository"
)

// 出品者の送金先口座
type SellerUsecase struct {
	users   repo.UserRepository
	gateway payments.Gateway
	log     *zap.Logger
}

func NewSellerUsecase(users repo.UserRepository, gateway payments.Gateway, log *zap.Logger) *SellerUsecase {
	return &SellerUsecase{users: users, gateway: gateway, log: orNop(log)}
}

type PayoutAccountInput struct {
	Country string
}

type PayoutAccountOutput struct {
	AccountID string `json:"account_id"`
	Created   bool   `json:"created"`
}

// CreatePayoutAccount は口座をプロバイダに作って紐付ける。既にあればそれを返す
func (u *SellerUsecase) CreatePayoutAccount(ctx context.Context, sellerID int64, in PayoutAccountInput) (PayoutAccountOutput, error) {
	if sellerID <= 0 {
		return PayoutAccountOutput{}, unauthorized()
	}

	seller, err := u.users.FindByID(ctx, sellerID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return PayoutAccountOutput{}, NotFound("seller not found")
	}
	if err != nil {
		return PayoutAccountOutput{}, dbError(err)
	}
	if seller.PayoutAccountID != "" {
		return PayoutAccountOutput{AccountID: seller.PayoutAccountID}, nil
	}

	accountID, err := u.gateway.CreateConnectedAccount(ctx, payments.ConnectedAccountRequest{
		SellerID:       sellerID,
		Email:          seller.Email,
		Country:        strings.TrimSpace(in.Country),
		IdempotencyKey: "payout-account-" + idString(sellerID),
	})
	if err != nil {
		u.log.Error("create payout account failed", zap.Int64("seller_id", sellerID), zap.Error(err))
		return PayoutAccountOutput{}, PaymentError("payment provider rejected the account", err)
	}

	err = u.users.SetPayoutAccountID(ctx, sellerID, accountID)
	if errors.Is(err, repo.ErrDuplicate) {
		return PayoutAccountOutput{}, Conflict("seller already has a different payout account")
	}
	if err != nil {
		// プロバイダ側には口座がある。同じキーで再実行すれば同じ口座が返る
		u.log.Error("payout account created but not linked",
			zap.Int64("seller_id", sellerID),
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return PayoutAccountOutput{}, dbError(err)
	}

	u.log.Info("payout account linked", zap.Int64("seller_id", sellerID), zap.String("account_id", accountID))
	return PayoutAccountOutput{AccountID: accountID, Created: true}, nil
}
