package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeAccountAPI interface {
	New(params *stripe.AccountParams) (*stripe.Account, error)
}

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeTransferAPI interface {
	New(params *stripe.TransferParams) (*stripe.Transfer, error)
}

type stripeClients struct {
	accounts  stripeAccountAPI
	intents   stripePaymentIntentAPI
	transfers stripeTransferAPI
	refunds   stripeRefundAPI
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger
	Clients  *stripeClients
}

// StripeGateway implements Gateway with Stripe Connect (express accounts + transfers).
type StripeGateway struct {
	api    stripeClients
	logger StripeLogger
}

// NewStripeGateway constructs a Stripe Gateway using the given configuration.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{
			accounts:  sc.Accounts,
			intents:   sc.PaymentIntents,
			transfers: sc.Transfers,
			refunds:   sc.Refunds,
		}
	}

	if clients.accounts == nil || clients.intents == nil || clients.transfers == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeGateway{api: clients, logger: logger}, nil
}

// CreateConnectedAccount creates an express account able to receive transfers.
func (g *StripeGateway) CreateConnectedAccount(ctx context.Context, req ConnectedAccountRequest) (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	if req.Country != "" {
		params.Country = stripe.String(strings.ToUpper(req.Country))
	}
	params.AddMetadata("seller_id", strconv.FormatInt(req.SellerID, 10))

	acct, err := g.api.accounts.New(params)
	if err != nil {
		return "", providerError("create connected account", err)
	}
	g.logger(ctx, "payments.stripe.account.created", map[string]any{
		"accountId": acct.ID,
		"sellerId":  req.SellerID,
	})
	return acct.ID, nil
}

// Charge creates a Payment Intent; the client confirms it with the returned secret.
func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (Charge, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return Charge{}, ErrIdempotencyKeyRequired
	}
	if !req.Amount.IsPositive() {
		return Charge{}, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.intents.New(params)
	if err != nil {
		return Charge{}, providerError("create payment intent", err)
	}
	g.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
	})
	return Charge{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       chargeStatus(intent.Status),
	}, nil
}

// ConfirmCharge confirms the Payment Intent the client secret belongs to.
func (g *StripeGateway) ConfirmCharge(ctx context.Context, req ConfirmChargeRequest) (ChargeStatus, error) {
	intentID, err := IntentIDFromClientSecret(req.ClientSecret)
	if err != nil {
		return "", err
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}

	intent, err := g.api.intents.Confirm(intentID, params)
	if err != nil {
		return "", providerError("confirm payment intent", err)
	}
	g.logger(ctx, "payments.stripe.intent.confirmed", map[string]any{
		"paymentIntent": intent.ID,
		"status":        intent.Status,
	})
	return chargeStatus(intent.Status), nil
}

// Transfer sends funds from the platform balance to a connected account.
func (g *StripeGateway) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return "", ErrIdempotencyKeyRequired
	}
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if strings.TrimSpace(req.AccountID) == "" {
		return "", ErrDestinationRequired
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(MinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.AccountID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	tr, err := g.api.transfers.New(params)
	if err != nil {
		return "", providerError("create transfer", err)
	}
	g.logger(ctx, "payments.stripe.transfer.created", map[string]any{
		"transferId":  tr.ID,
		"destination": req.AccountID,
		"amount":      tr.Amount,
	})
	return tr.ID, nil
}

// LookupCharge retrieves a Payment Intent with its metadata.
func (g *StripeGateway) LookupCharge(ctx context.Context, intentID string) (ChargeDetails, error) {
	intent, err := g.getIntent(ctx, intentID)
	if err != nil {
		return ChargeDetails{}, err
	}
	return ChargeDetails{
		IntentID: intent.ID,
		Amount:   FromMinorUnits(intent.Amount),
		Currency: string(intent.Currency),
		Status:   chargeStatus(intent.Status),
		Metadata: intent.Metadata,
	}, nil
}

// CancelCharge voids an uncaptured Payment Intent and refunds a succeeded one.
func (g *StripeGateway) CancelCharge(ctx context.Context, req CancelChargeRequest) error {
	intent, err := g.getIntent(ctx, req.IntentID)
	if err != nil {
		return err
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusCanceled:
		return nil
	case stripe.PaymentIntentStatusSucceeded:
		return g.refund(ctx, req)
	}

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	cancelled, err := g.api.intents.Cancel(req.IntentID, params)
	if err != nil {
		return providerError("cancel payment intent", err)
	}
	g.logger(ctx, "payments.stripe.intent.cancelled", map[string]any{
		"paymentIntent": cancelled.ID,
	})
	return nil
}

func (g *StripeGateway) refund(ctx context.Context, req CancelChargeRequest) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if _, err := g.api.refunds.New(params); err != nil {
		return providerError("refund payment intent", err)
	}
	g.logger(ctx, "payments.stripe.intent.refunded", map[string]any{
		"paymentIntent": req.IntentID,
	})
	return nil
}

func (g *StripeGateway) getIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, errors.New("stripe: payment intent id is required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.api.intents.Get(intentID, params)
	if err != nil {
		return nil, providerError("lookup payment intent", err)
	}
	return intent, nil
}

// 4xx（409を除く）は処理されていない。それ以外は結果不明
func providerError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != http.StatusConflict {
		return fmt.Errorf("stripe: %s: %w: %w", op, ErrRejected, err)
	}
	return fmt.Errorf("stripe: %s: %w", op, err)
}

// IntentIDFromClientSecret extracts "pi_123" from "pi_123_secret_abc".
func IntentIDFromClientSecret(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	idx := strings.Index(secret, "_secret_")
	if idx <= 0 {
		return "", errors.New("stripe: malformed client secret")
	}
	return secret[:idx], nil
}

func chargeStatus(s stripe.PaymentIntentStatus) ChargeStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return ChargeSettled
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		return ChargeFailed
	default:
		return ChargePending
	}
}

var _ Gateway = (*StripeGateway)(nil)
