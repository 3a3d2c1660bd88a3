package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type fakeAccounts struct {
	params *stripe.AccountParams
}

func (f *fakeAccounts) New(params *stripe.AccountParams) (*stripe.Account, error) {
	f.params = params
	return &stripe.Account{ID: "acct_1"}, nil
}

type fakeIntents struct {
	newParams     *stripe.PaymentIntentParams
	confirmID     string
	confirmStatus stripe.PaymentIntentStatus
	cancelID      string
	err           error
	// Get/Cancel が見る既存のIntent
	stored map[string]*stripe.PaymentIntent
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.newParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{
		ID:           "pi_1",
		ClientSecret: "pi_1_secret_abc",
		Amount:       *params.Amount,
		Status:       stripe.PaymentIntentStatusRequiresConfirmation,
	}, nil
}

func (f *fakeIntents) Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	f.confirmID = id
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: id, Status: f.confirmStatus}, nil
}

// Stripeと同じく、確定済みのIntentは取り消せない
func (f *fakeIntents) Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	if pi, ok := f.stored[id]; ok && pi.Status == stripe.PaymentIntentStatusSucceeded {
		return nil, &stripe.Error{HTTPStatusCode: 400, Code: stripe.ErrorCodePaymentIntentUnexpectedState}
	}
	f.cancelID = id
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
}

func (f *fakeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	pi, ok := f.stored[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: 404, Code: stripe.ErrorCodeResourceMissing}
	}
	return pi, nil
}

type fakeRefunds struct {
	params *stripe.RefundParams
}

func (f *fakeRefunds) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.params = params
	return &stripe.Refund{ID: "re_1", Status: stripe.RefundStatusSucceeded}, nil
}

type fakeTransfers struct {
	params *stripe.TransferParams
	err    error
}

func (f *fakeTransfers) New(params *stripe.TransferParams) (*stripe.Transfer, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Transfer{ID: "tr_1", Amount: *params.Amount}, nil
}

func newTestGateway(t *testing.T) (*StripeGateway, *fakeAccounts, *fakeIntents, *fakeTransfers) {
	g, acc, in, tr, _ := newTestGatewayWithRefunds(t)
	return g, acc, in, tr
}

func newTestGatewayWithRefunds(t *testing.T) (*StripeGateway, *fakeAccounts, *fakeIntents, *fakeTransfers, *fakeRefunds) {
	t.Helper()
	acc := &fakeAccounts{}
	in := &fakeIntents{stored: map[string]*stripe.PaymentIntent{}}
	tr := &fakeTransfers{}
	rf := &fakeRefunds{}
	g, err := NewStripeGateway(StripeGatewayConfig{
		Clients: &stripeClients{accounts: acc, intents: in, transfers: tr, refunds: rf},
	})
	require.NoError(t, err)
	return g, acc, in, tr, rf
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeGatewayConfig{})
	assert.Error(t, err)

	_, err = NewStripeGateway(StripeGatewayConfig{Clients: &stripeClients{}})
	assert.ErrorContains(t, err, "incomplete")
}

func TestCharge(t *testing.T) {
	g, _, in, _ := newTestGateway(t)

	ch, err := g.Charge(context.Background(), ChargeRequest{
		Amount:          decimal.RequireFromString("57.08"),
		Currency:        "EUR",
		PaymentMethodID: "pm_card",
		IdempotencyKey:  "key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", ch.IntentID)
	assert.Equal(t, "pi_1_secret_abc", ch.ClientSecret)
	assert.Equal(t, ChargePending, ch.Status)
	assert.Equal(t, int64(5708), *in.newParams.Amount)
	assert.Equal(t, "eur", *in.newParams.Currency)
	assert.Equal(t, "key-1", *in.newParams.IdempotencyKey)
	assert.Equal(t, "pm_card", *in.newParams.PaymentMethod)
}

func TestCharge_Validation(t *testing.T) {
	g, _, in, _ := newTestGateway(t)

	_, err := g.Charge(context.Background(), ChargeRequest{Amount: decimal.NewFromInt(1), Currency: "eur"})
	assert.ErrorIs(t, err, ErrIdempotencyKeyRequired)

	_, err = g.Charge(context.Background(), ChargeRequest{Amount: decimal.Zero, Currency: "eur", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Nil(t, in.newParams)
}

func TestCharge_ProviderErrorWrapped(t *testing.T) {
	g, _, in, _ := newTestGateway(t)
	cause := errors.New("card_declined")
	in.err = cause

	_, err := g.Charge(context.Background(), ChargeRequest{Amount: decimal.NewFromInt(10), Currency: "eur", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "stripe: create payment intent")
}

func TestConfirmCharge(t *testing.T) {
	cases := []struct {
		status stripe.PaymentIntentStatus
		want   ChargeStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, ChargeSettled},
		{stripe.PaymentIntentStatusProcessing, ChargePending},
		{stripe.PaymentIntentStatusRequiresAction, ChargePending},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, ChargeFailed},
		{stripe.PaymentIntentStatusCanceled, ChargeFailed},
	}
	for _, tc := range cases {
		g, _, in, _ := newTestGateway(t)
		in.confirmStatus = tc.status

		got, err := g.ConfirmCharge(context.Background(), ConfirmChargeRequest{ClientSecret: "pi_9_secret_x", PaymentMethodID: "pm"})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, string(tc.status))
		assert.Equal(t, "pi_9", in.confirmID)
	}
}

func TestConfirmCharge_MalformedSecret(t *testing.T) {
	g, _, in, _ := newTestGateway(t)
	_, err := g.ConfirmCharge(context.Background(), ConfirmChargeRequest{ClientSecret: "garbage"})
	assert.Error(t, err)
	assert.Empty(t, in.confirmID)
}

func TestTransfer(t *testing.T) {
	g, _, _, tr := newTestGateway(t)

	id, err := g.Transfer(context.Background(), TransferRequest{
		AccountID:      "acct_9",
		Amount:         decimal.RequireFromString("42.5"),
		Currency:       "eur",
		IdempotencyKey: "payout-artwork-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_1", id)
	assert.Equal(t, int64(4250), *tr.params.Amount)
	assert.Equal(t, "acct_9", *tr.params.Destination)
	assert.Equal(t, "payout-artwork-7", *tr.params.IdempotencyKey)
}

func TestTransfer_RequiresKeyAndAccount(t *testing.T) {
	g, _, _, tr := newTestGateway(t)

	_, err := g.Transfer(context.Background(), TransferRequest{AccountID: "acct", Amount: decimal.NewFromInt(1), Currency: "eur"})
	assert.ErrorIs(t, err, ErrIdempotencyKeyRequired)

	_, err = g.Transfer(context.Background(), TransferRequest{Amount: decimal.NewFromInt(1), Currency: "eur", IdempotencyKey: "k"})
	assert.ErrorIs(t, err, ErrDestinationRequired)
	assert.True(t, IsRejected(err))
	assert.Nil(t, tr.params)
}

func TestCreateConnectedAccount(t *testing.T) {
	g, acc, _, _ := newTestGateway(t)

	id, err := g.CreateConnectedAccount(context.Background(), ConnectedAccountRequest{SellerID: 12, Email: "s@example.com", Country: "de"})
	require.NoError(t, err)
	assert.Equal(t, "acct_1", id)
	assert.Equal(t, "express", *acc.params.Type)
	assert.Equal(t, "DE", *acc.params.Country)
	assert.Equal(t, "12", acc.params.Metadata["seller_id"])
}

func TestCancelCharge(t *testing.T) {
	g, _, in, _, rf := newTestGatewayWithRefunds(t)
	in.stored["pi_5"] = &stripe.PaymentIntent{ID: "pi_5", Status: stripe.PaymentIntentStatusRequiresCapture}

	require.NoError(t, g.CancelCharge(context.Background(), CancelChargeRequest{IntentID: "pi_5", IdempotencyKey: "cancel-pi_5"}))
	assert.Equal(t, "pi_5", in.cancelID)
	assert.Nil(t, rf.params)

	assert.Error(t, g.CancelCharge(context.Background(), CancelChargeRequest{}))
}

func TestCancelCharge_RefundsSucceededIntent(t *testing.T) {
	g, _, in, _, rf := newTestGatewayWithRefunds(t)
	in.stored["pi_6"] = &stripe.PaymentIntent{ID: "pi_6", Status: stripe.PaymentIntentStatusSucceeded}

	require.NoError(t, g.CancelCharge(context.Background(), CancelChargeRequest{IntentID: "pi_6", IdempotencyKey: "cancel-pi_6"}))

	require.NotNil(t, rf.params)
	assert.Equal(t, "pi_6", *rf.params.PaymentIntent)
	assert.Equal(t, "cancel-pi_6", *rf.params.IdempotencyKey)
	assert.Empty(t, in.cancelID)
}

func TestCancelCharge_AlreadyCancelledIsNoop(t *testing.T) {
	g, _, in, _, rf := newTestGatewayWithRefunds(t)
	in.stored["pi_7"] = &stripe.PaymentIntent{ID: "pi_7", Status: stripe.PaymentIntentStatusCanceled}

	require.NoError(t, g.CancelCharge(context.Background(), CancelChargeRequest{IntentID: "pi_7"}))
	assert.Empty(t, in.cancelID)
	assert.Nil(t, rf.params)
}

func TestLookupCharge(t *testing.T) {
	g, _, in, _ := newTestGateway(t)
	in.stored["pi_8"] = &stripe.PaymentIntent{
		ID:       "pi_8",
		Amount:   5708,
		Currency: stripe.CurrencyEUR,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{"buyer_id": "7"},
	}

	got, err := g.LookupCharge(context.Background(), "pi_8")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("57.08").Equal(got.Amount))
	assert.Equal(t, ChargeSettled, got.Status)
	assert.Equal(t, "7", got.Metadata["buyer_id"])

	_, err = g.LookupCharge(context.Background(), "pi_missing")
	assert.True(t, IsRejected(err))
}

func TestTransfer_ErrorClassification(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"insufficient funds", &stripe.Error{HTTPStatusCode: 400, Code: stripe.ErrorCodeBalanceInsufficient}, true},
		{"rate limited", &stripe.Error{HTTPStatusCode: 429}, true},
		{"idempotent request in flight", &stripe.Error{HTTPStatusCode: 409}, false},
		{"provider 500", &stripe.Error{HTTPStatusCode: 500}, false},
		{"timeout", context.DeadlineExceeded, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _, _, tr := newTestGateway(t)
			tr.err = tc.err

			_, err := g.Transfer(context.Background(), TransferRequest{
				AccountID:      "acct_9",
				Amount:         decimal.NewFromInt(10),
				Currency:       "eur",
				IdempotencyKey: "payout-artwork-7",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.rejected, IsRejected(err))
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(708), MinorUnits(decimal.RequireFromString("7.08")))
	assert.Equal(t, int64(500), MinorUnits(decimal.RequireFromString("4.9995")))
	assert.Equal(t, int64(95000), MinorUnits(decimal.NewFromInt(950)))
}
