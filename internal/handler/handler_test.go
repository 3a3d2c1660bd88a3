package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artmarket/internal/config"
	"artmarket/internal/domain/model"
	repo "artmarket/internal/repository"
	"artmarket/internal/usecase"
)

const testSecret = "handler-secret"

// 使うメソッドだけ実装（他を呼ぶとpanic）
type stubRates struct {
	repo.ShippingRateRepository
	rates map[string]model.ShippingRate
}

func (s stubRates) FindByCountry(_ context.Context, country string) (model.ShippingRate, error) {
	r, ok := s.rates[strings.ToUpper(country)]
	if !ok {
		return model.ShippingRate{}, repo.ErrNotFound
	}
	return r, nil
}

type stubRepos struct {
	repo.TxRepos
	rates stubRates
}

func (r stubRepos) ShippingRates() repo.ShippingRateRepository { return r.rates }

type stubTx struct{ repos stubRepos }

func (s stubTx) WithinTx(_ context.Context, fn func(r repo.TxRepos) error) error {
	return fn(s.repos)
}

type stubUsers struct {
	repo.UserRepository
}

func (stubUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	return &model.User{ID: id, IsActive: true}, nil
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := config.Config{JWTSecret: testSecret}
	users := stubUsers{}

	tx := stubTx{repos: stubRepos{rates: stubRates{rates: map[string]model.ShippingRate{
		"FR": {
			Country:           "FR",
			BaseRate:          decimal.NewFromInt(5),
			PerKgRate:         decimal.NewFromInt(1),
			PerCubicMeterRate: decimal.NewFromInt(20),
		},
	}}}}

	e := echo.New()
	NewShippingHandler(usecase.NewShippingUsecase(tx, nil)).RegisterRoutes(e, cfg, users)
	NewOrderHandler(usecase.NewOrderUsecase(tx, nil, "eur", nil, nil), usecase.NewAdminOrderUsecase(tx, nil, "eur", nil, nil, nil)).RegisterRoutes(e, cfg, users)
	NewCartHandler(usecase.NewCartUsecase(tx, 0, nil, nil, nil)).RegisterRoutes(e, cfg, users)
	return e
}

func bearer(t *testing.T, userID int64, role model.Role) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID, "role": string(role), "tv": 0})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(t *testing.T, e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var r ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   ErrorResponse
	}{
		{usecase.NotFound("artwork not found"), http.StatusNotFound, ErrorResponse{"NOT_FOUND", "artwork not found"}},
		{usecase.Conflict("taken"), http.StatusConflict, ErrorResponse{"CONFLICT", "taken"}},
		{usecase.InvalidState("bad"), http.StatusUnprocessableEntity, ErrorResponse{"INVALID_STATE", "bad"}},
		{usecase.PreconditionFailed("no account"), http.StatusPreconditionFailed, ErrorResponse{"PRECONDITION_FAILED", "no account"}},
		{usecase.PaymentError("declined", errors.New("card_declined")), http.StatusBadGateway, ErrorResponse{"PAYMENT_ERROR", "declined"}},
		{errors.New("boom"), http.StatusInternalServerError, ErrorResponse{"INTERNAL", "internal error"}},
	}
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, writeError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.body, decodeError(t, rec))
	}
}

func TestCalculateShipping(t *testing.T) {
	e := newTestEcho(t)

	rec := do(t, e, http.MethodPost, "/shippingrates/calculate-shipping",
		`{"country":"fr","weight":2,"length":20,"width":20,"height":10}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		ShippingCost decimal.Decimal `json:"shipping_cost"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.True(t, out.ShippingCost.Equal(decimal.RequireFromString("7.08")), out.ShippingCost.String())
}

func TestCalculateShipping_Errors(t *testing.T) {
	e := newTestEcho(t)

	rec := do(t, e, http.MethodPost, "/shippingrates/calculate-shipping", `{"country":"JP","weight":1,"length":1,"width":1,"height":1}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error)

	rec = do(t, e, http.MethodPost, "/shippingrates/calculate-shipping", `{"weight":1}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error)

	rec = do(t, e, http.MethodPost, "/shippingrates/calculate-shipping", `{"country":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderRoutes_Auth(t *testing.T) {
	e := newTestEcho(t)

	rec := do(t, e, http.MethodPost, "/orders/create-order", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 管理者専用
	rec = do(t, e, http.MethodPost, "/orders/send-money/1", ``, bearer(t, 7, model.RoleBuyer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodPut, "/orders/update-order-status/1", `{"status":"SHIPPED"}`, bearer(t, 7, model.RoleSeller))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderRoutes_Validation(t *testing.T) {
	e := newTestEcho(t)
	auth := bearer(t, 7, model.RoleBuyer)

	rec := do(t, e, http.MethodPost, "/orders/create-order", `{"artwork_ids":[]}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error)

	rec = do(t, e, http.MethodGet, "/orders/abc", ``, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPut, "/orders/update-order-status/1", `{"status":"LOST"}`, bearer(t, 1, model.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/cart/add", `{"artwork_id":0}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
