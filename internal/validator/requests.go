package validator

import (
	"strings"

	"github.com/shopspring/decimal"

	"artmarket/internal/domain/model"
	"artmarket/internal/domain/pricing"
	"artmarket/internal/usecase"
)

// 数値はJSONの数値・文字列どちらでも受ける（decimalの仕様）

type AddToCartRequest struct {
	ArtworkID int64 `json:"artwork_id"`
}

func (r AddToCartRequest) Validate() (int64, error) {
	if r.ArtworkID <= 0 {
		return 0, usecase.Validation("artwork_id is required")
	}
	return r.ArtworkID, nil
}

type ArtworkRequest struct {
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	WeightKg    *decimal.Decimal `json:"weight"`
	LengthCm    *decimal.Decimal `json:"length"`
	WidthCm     *decimal.Decimal `json:"width"`
	HeightCm    *decimal.Decimal `json:"height"`
	ImageKey    string           `json:"image_key"`
}

func (r ArtworkRequest) Input() (usecase.ArtworkInput, error) {
	title, err := required(r.Title, "title")
	if err != nil {
		return usecase.ArtworkInput{}, err
	}
	if err := maxLen(title, maxTitleLen, "title"); err != nil {
		return usecase.ArtworkInput{}, err
	}
	if err := maxLen(r.Description, maxDescriptionLen, "description"); err != nil {
		return usecase.ArtworkInput{}, err
	}

	category := model.ArtworkCategory(strings.ToUpper(strings.TrimSpace(r.Category)))
	if !model.ValidArtworkCategory(category) {
		return usecase.ArtworkInput{}, usecase.Validation("invalid category")
	}

	price, err := positive(r.Price, "price")
	if err != nil {
		return usecase.ArtworkInput{}, err
	}
	parcel, err := parcelOf(r.WeightKg, r.LengthCm, r.WidthCm, r.HeightCm)
	if err != nil {
		return usecase.ArtworkInput{}, err
	}

	return usecase.ArtworkInput{
		Title:       title,
		Category:    category,
		Description: strings.TrimSpace(r.Description),
		Price:       price,
		WeightKg:    parcel.WeightKg,
		LengthCm:    parcel.LengthCm,
		WidthCm:     parcel.WidthCm,
		HeightCm:    parcel.HeightCm,
		ImageKey:    strings.TrimSpace(r.ImageKey),
	}, nil
}

type RejectArtworkRequest struct {
	Reason string `json:"reason"`
}

func (r RejectArtworkRequest) Validate() (string, error) {
	reason, err := required(r.Reason, "reason")
	if err != nil {
		return "", err
	}
	if err := maxLen(reason, maxDescriptionLen, "reason"); err != nil {
		return "", err
	}
	return reason, nil
}

type AddressRequest struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

func (r AddressRequest) input() (usecase.ShippingAddress, error) {
	var (
		out usecase.ShippingAddress
		err error
	)
	if out.Name, err = required(r.Name, "name"); err != nil {
		return usecase.ShippingAddress{}, err
	}
	if out.AddressLine1, err = required(r.AddressLine1, "address_line1"); err != nil {
		return usecase.ShippingAddress{}, err
	}
	if out.City, err = required(r.City, "city"); err != nil {
		return usecase.ShippingAddress{}, err
	}
	if out.PostalCode, err = required(r.PostalCode, "postal_code"); err != nil {
		return usecase.ShippingAddress{}, err
	}
	if out.Country, err = required(r.Country, "country"); err != nil {
		return usecase.ShippingAddress{}, err
	}
	out.AddressLine2 = strings.TrimSpace(r.AddressLine2)
	out.Phone = strings.TrimSpace(r.Phone)
	return out, nil
}

type CreateOrderRequest struct {
	ArtworkIDs      []int64        `json:"artwork_ids"`
	Address         AddressRequest `json:"shipping_address"`
	PaymentIntentID string         `json:"payment_intent_id"`
}

// idemKeyはヘッダーから
func (r CreateOrderRequest) Input(idemKey string) (usecase.CreateOrderInput, error) {
	if len(r.ArtworkIDs) == 0 {
		return usecase.CreateOrderInput{}, usecase.Validation("artwork_ids is required")
	}
	for _, id := range r.ArtworkIDs {
		if id <= 0 {
			return usecase.CreateOrderInput{}, usecase.Validation("invalid artwork_ids")
		}
	}
	addr, err := r.Address.input()
	if err != nil {
		return usecase.CreateOrderInput{}, err
	}
	key, err := IdempotencyKey(idemKey)
	if err != nil {
		return usecase.CreateOrderInput{}, err
	}
	return usecase.CreateOrderInput{
		ArtworkIDs:      r.ArtworkIDs,
		Address:         addr,
		PaymentIntentID: strings.TrimSpace(r.PaymentIntentID),
		IdempotencyKey:  key,
	}, nil
}

type PaymentIntentRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency"`
	PaymentMethodID string           `json:"payment_method_id"`
}

func (r PaymentIntentRequest) Input(idemKey string) (usecase.PaymentIntentInput, error) {
	amount, err := positive(r.Amount, "amount")
	if err != nil {
		return usecase.PaymentIntentInput{}, err
	}
	currency := strings.ToLower(strings.TrimSpace(r.Currency))
	if currency != "" && len(currency) != 3 {
		return usecase.PaymentIntentInput{}, usecase.Validation("invalid currency")
	}
	pm, err := required(r.PaymentMethodID, "payment_method_id")
	if err != nil {
		return usecase.PaymentIntentInput{}, err
	}
	key, err := IdempotencyKey(idemKey)
	if err != nil {
		return usecase.PaymentIntentInput{}, err
	}
	return usecase.PaymentIntentInput{
		Amount:          amount,
		Currency:        currency,
		PaymentMethodID: pm,
		IdempotencyKey:  key,
	}, nil
}

type ConfirmPaymentRequest struct {
	ClientSecret    string `json:"client_secret"`
	PaymentMethodID string `json:"payment_method_id"`
}

func (r ConfirmPaymentRequest) Input(idemKey string) (usecase.ConfirmPaymentInput, error) {
	secret, err := required(r.ClientSecret, "client_secret")
	if err != nil {
		return usecase.ConfirmPaymentInput{}, err
	}
	key, err := IdempotencyKey(idemKey)
	if err != nil {
		return usecase.ConfirmPaymentInput{}, err
	}
	return usecase.ConfirmPaymentInput{
		ClientSecret:    secret,
		PaymentMethodID: strings.TrimSpace(r.PaymentMethodID),
		IdempotencyKey:  key,
	}, nil
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

func (r OrderStatusRequest) Input() (usecase.AdminUpdateOrderStatusInput, error) {
	status := model.OrderStatus(strings.ToUpper(strings.TrimSpace(r.Status)))
	if !model.ValidOrderStatus(status) {
		return usecase.AdminUpdateOrderStatusInput{}, usecase.Validation("invalid status")
	}
	return usecase.AdminUpdateOrderStatusInput{Status: string(status)}, nil
}

type ParcelRequest struct {
	WeightKg *decimal.Decimal `json:"weight"`
	LengthCm *decimal.Decimal `json:"length"`
	WidthCm  *decimal.Decimal `json:"width"`
	HeightCm *decimal.Decimal `json:"height"`
}

// 1点ならトップレベル、複数点ならparcels
type CalculateShippingRequest struct {
	Country string `json:"country"`
	ParcelRequest
	Parcels []ParcelRequest `json:"parcels"`
}

func (r CalculateShippingRequest) Input() (usecase.CalculateShippingInput, error) {
	country, err := required(r.Country, "country")
	if err != nil {
		return usecase.CalculateShippingInput{}, err
	}

	reqs := r.Parcels
	if len(reqs) == 0 {
		reqs = []ParcelRequest{r.ParcelRequest}
	}
	parcels := make([]pricing.Parcel, 0, len(reqs))
	for _, p := range reqs {
		parcel, err := parcelOf(p.WeightKg, p.LengthCm, p.WidthCm, p.HeightCm)
		if err != nil {
			return usecase.CalculateShippingInput{}, err
		}
		parcels = append(parcels, parcel)
	}
	return usecase.CalculateShippingInput{Country: country, Parcels: parcels}, nil
}

type ShippingRateRequest struct {
	BaseRate          *decimal.Decimal `json:"base_rate"`
	PerKgRate         *decimal.Decimal `json:"per_kg_rate"`
	PerCubicMeterRate *decimal.Decimal `json:"per_cubic_meter_rate"`
}

// countryはパスから
func (r ShippingRateRequest) Input(country string) (usecase.UpsertShippingRateInput, error) {
	c, err := required(country, "country")
	if err != nil {
		return usecase.UpsertShippingRateInput{}, err
	}
	base, err := nonNegative(r.BaseRate, "base_rate")
	if err != nil {
		return usecase.UpsertShippingRateInput{}, err
	}
	perKg, err := nonNegative(r.PerKgRate, "per_kg_rate")
	if err != nil {
		return usecase.UpsertShippingRateInput{}, err
	}
	perCubic, err := nonNegative(r.PerCubicMeterRate, "per_cubic_meter_rate")
	if err != nil {
		return usecase.UpsertShippingRateInput{}, err
	}
	return usecase.UpsertShippingRateInput{
		Country:           strings.ToUpper(c),
		BaseRate:          base,
		PerKgRate:         perKg,
		PerCubicMeterRate: perCubic,
	}, nil
}

type PayoutAccountRequest struct {
	Country string `json:"country"`
}

func (r PayoutAccountRequest) Input() (usecase.PayoutAccountInput, error) {
	country := strings.ToUpper(strings.TrimSpace(r.Country))
	if country != "" && len(country) != 2 {
		return usecase.PayoutAccountInput{}, usecase.Validation("invalid country")
	}
	return usecase.PayoutAccountInput{Country: country}, nil
}

func parcelOf(weight, length, width, height *decimal.Decimal) (pricing.Parcel, error) {
	w, err := positive(weight, "weight")
	if err != nil {
		return pricing.Parcel{}, err
	}
	l, err := positive(length, "length")
	if err != nil {
		return pricing.Parcel{}, err
	}
	wd, err := positive(width, "width")
	if err != nil {
		return pricing.Parcel{}, err
	}
	h, err := positive(height, "height")
	if err != nil {
		return pricing.Parcel{}, err
	}
	return pricing.Parcel{WeightKg: w, LengthCm: l, WidthCm: wd, HeightCm: h}, nil
}
