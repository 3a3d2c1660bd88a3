package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrIdempotencyKeyRequired is returned when a charge or transfer is attempted without a key.
var ErrIdempotencyKeyRequired = errors.New("payments: idempotency key is required")

// ErrInvalidAmount is returned for zero or negative amounts.
var ErrInvalidAmount = errors.New("payments: amount must be positive")

// ErrDestinationRequired is returned when a transfer has no destination account.
var ErrDestinationRequired = errors.New("payments: destination account is required")

// ErrRejected marks a request the provider definitively refused; nothing was moved.
var ErrRejected = errors.New("payments: rejected by provider")

// IsRejected reports whether err proves the request had no effect at the provider.
// Transport errors and timeouts are not rejections: the outcome is unknown.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrIdempotencyKeyRequired) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrDestinationRequired)
}

// ChargeStatus is the provider-independent outcome of a charge confirmation.
type ChargeStatus string

const (
	ChargeSettled ChargeStatus = "settled"
	ChargePending ChargeStatus = "pending"
	ChargeFailed  ChargeStatus = "failed"
)

// ConnectedAccountRequest asks the provider for a payout account for a seller.
type ConnectedAccountRequest struct {
	SellerID       int64
	Email          string
	Country        string
	IdempotencyKey string
}

// ChargeRequest authorizes a buyer charge.
type ChargeRequest struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	IdempotencyKey  string
	Metadata        map[string]string
}

// Charge is a client-confirmable handle to an authorized charge.
type Charge struct {
	IntentID     string
	ClientSecret string
	Status       ChargeStatus
}

// ConfirmChargeRequest confirms a charge from its client secret.
type ConfirmChargeRequest struct {
	ClientSecret    string
	PaymentMethodID string
	IdempotencyKey  string
}

// ChargeDetails is the provider's current view of a charge.
type ChargeDetails struct {
	IntentID string
	Amount   decimal.Decimal
	Currency string
	Status   ChargeStatus
	Metadata map[string]string
}

// CancelChargeRequest voids an authorized charge, or refunds it when already captured.
type CancelChargeRequest struct {
	IntentID       string
	IdempotencyKey string
}

// TransferRequest moves funds to a connected account.
type TransferRequest struct {
	AccountID      string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Gateway is the external card-payment and split-payout provider.
// Calls are never retried here; callers decide.
type Gateway interface {
	CreateConnectedAccount(ctx context.Context, req ConnectedAccountRequest) (string, error)
	Charge(ctx context.Context, req ChargeRequest) (Charge, error)
	ConfirmCharge(ctx context.Context, req ConfirmChargeRequest) (ChargeStatus, error)
	LookupCharge(ctx context.Context, intentID string) (ChargeDetails, error)
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	CancelCharge(ctx context.Context, req CancelChargeRequest) error
}

// MinorUnits converts a currency amount to its smallest unit (cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
