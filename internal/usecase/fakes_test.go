package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"artmarket/internal/domain/model"
	"artmarket/internal/payments"
	repo "artmarket/internal/repository"
)

// =====================
// in-memory store（WithinTxで失敗したら元に戻す）
// =====================

type memState struct {
	artworks      map[int64]model.Artwork
	reservations  map[int64]model.CartReservation
	orders        map[int64]model.Order
	orderArtworks []model.OrderArtwork
	rates         map[string]model.ShippingRate
	payouts       map[int64]model.Payout
	users         map[int64]model.User
	audit         []model.AuditLog
	nextID        int64
}

func (s memState) clone() memState {
	c := memState{
		artworks:      make(map[int64]model.Artwork, len(s.artworks)),
		reservations:  make(map[int64]model.CartReservation, len(s.reservations)),
		orders:        make(map[int64]model.Order, len(s.orders)),
		orderArtworks: append([]model.OrderArtwork(nil), s.orderArtworks...),
		rates:         make(map[string]model.ShippingRate, len(s.rates)),
		payouts:       make(map[int64]model.Payout, len(s.payouts)),
		users:         make(map[int64]model.User, len(s.users)),
		audit:         append([]model.AuditLog(nil), s.audit...),
		nextID:        s.nextID,
	}
	for k, v := range s.artworks {
		c.artworks[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.rates {
		c.rates[k] = v
	}
	for k, v := range s.payouts {
		c.payouts[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

type memStore struct {
	mu sync.Mutex
	memState

	// 失敗注入
	failOrderCreate error
	failSetAvail    map[int64]error

	// FOR UPDATEで読まれた回数
	lockedReads map[int64]int
}

func newMemStore() *memStore {
	return &memStore{
		memState: memState{
			artworks:     map[int64]model.Artwork{},
			reservations: map[int64]model.CartReservation{},
			orders:       map[int64]model.Order{},
			rates:        map[string]model.ShippingRate{},
			payouts:      map[int64]model.Payout{},
			users:        map[int64]model.User{},
			nextID:       100,
		},
		failSetAvail: map[int64]error{},
		lockedReads:  map[int64]int{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.memState.clone()
	if err := fn(memRepos{s}); err != nil {
		s.memState = snapshot
		return err
	}
	return nil
}

type memRepos struct{ s *memStore }

func (r memRepos) Artworks() repo.ArtworkRepository             { return memArtworks{r.s} }
func (r memRepos) Reservations() repo.CartReservationRepository { return memReservations{r.s} }
func (r memRepos) Orders() repo.OrderRepository                 { return memOrders{r.s} }
func (r memRepos) OrderArtworks() repo.OrderArtworkRepository   { return memOrderArtworks{r.s} }
func (r memRepos) ShippingRates() repo.ShippingRateRepository   { return memRates{r.s} }
func (r memRepos) Payouts() repo.PayoutRepository               { return memPayouts{r.s} }
func (r memRepos) Users() repo.UserRepository                   { return memUsers{r.s} }
func (r memRepos) AuditLogs() repo.AuditLogRepository           { return memAudit{r.s} }

// ---- artworks

type memArtworks struct{ s *memStore }

func (m memArtworks) FindByID(_ context.Context, id int64) (model.Artwork, error) {
	a, ok := m.s.artworks[id]
	if !ok {
		return model.Artwork{}, repo.ErrNotFound
	}
	return a, nil
}

func (m memArtworks) FindByIDsForUpdate(_ context.Context, ids []int64) ([]model.Artwork, error) {
	out := []model.Artwork{}
	for _, id := range ids {
		m.s.lockedReads[id]++
		if a, ok := m.s.artworks[id]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memArtworks) Create(_ context.Context, a model.Artwork) (model.Artwork, error) {
	a.ID = m.s.id()
	m.s.artworks[a.ID] = a
	return a, nil
}

func (m memArtworks) Update(_ context.Context, a model.Artwork) error {
	cur, ok := m.s.artworks[a.ID]
	if !ok {
		return repo.ErrNotFound
	}
	a.IsAvailable = cur.IsAvailable
	m.s.artworks[a.ID] = a
	return nil
}

func (m memArtworks) SoftDelete(_ context.Context, id int64) error {
	if _, ok := m.s.artworks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.artworks, id)
	return nil
}

func (m memArtworks) UpdateStatus(_ context.Context, id int64, from []model.ArtworkStatus, to model.ArtworkStatus, reason string) (bool, error) {
	a, ok := m.s.artworks[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if a.Status == f {
			a.Status = to
			a.RejectReason = ""
			if to == model.ArtworkStatusRejected {
				a.RejectReason = reason
			}
			m.s.artworks[id] = a
			return true, nil
		}
	}
	return false, nil
}

func (m memArtworks) SetAvailability(_ context.Context, id int64, available bool) error {
	if err := m.s.failSetAvail[id]; err != nil {
		return err
	}
	a, ok := m.s.artworks[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.IsAvailable = available
	m.s.artworks[id] = a
	return nil
}

func (m memArtworks) HoldIfReservable(_ context.Context, id int64) (bool, error) {
	a, ok := m.s.artworks[id]
	if !ok || !a.Reservable() {
		return false, nil
	}
	a.IsAvailable = false
	m.s.artworks[id] = a
	return true, nil
}

func (m memArtworks) MarkInOrder(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		a, ok := m.s.artworks[id]
		if !ok || a.Status != model.ArtworkStatusVerified {
			continue
		}
		a.Status = model.ArtworkStatusInOrder
		a.IsAvailable = false
		m.s.artworks[id] = a
		n++
	}
	return n, nil
}

// ---- reservations

type memReservations struct{ s *memStore }

func (m memReservations) Create(_ context.Context, r model.CartReservation) (model.CartReservation, error) {
	for _, ex := range m.s.reservations {
		if ex.ArtworkID == r.ArtworkID {
			return model.CartReservation{}, repo.ErrDuplicate
		}
	}
	r.ID = m.s.id()
	m.s.reservations[r.ID] = r
	return r, nil
}

func (m memReservations) FindByArtworkID(_ context.Context, artworkID int64) (model.CartReservation, error) {
	for _, r := range m.s.reservations {
		if r.ArtworkID == artworkID {
			return r, nil
		}
	}
	return model.CartReservation{}, repo.ErrNotFound
}

func (m memReservations) ListByBuyerID(_ context.Context, buyerID int64) ([]model.CartReservation, error) {
	out := []model.CartReservation{}
	for _, r := range m.s.reservations {
		if r.BuyerID == buyerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memReservations) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]model.CartReservation, error) {
	out := []model.CartReservation{}
	for _, r := range m.s.reservations {
		if !r.AddedAt.After(cutoff) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memReservations) DeleteByArtworkID(_ context.Context, artworkID int64) (bool, error) {
	for id, r := range m.s.reservations {
		if r.ArtworkID == artworkID {
			delete(m.s.reservations, id)
			return true, nil
		}
	}
	return false, nil
}

func (m memReservations) DeleteIfExpired(_ context.Context, id int64, cutoff time.Time) (bool, error) {
	r, ok := m.s.reservations[id]
	if !ok || r.AddedAt.After(cutoff) {
		return false, nil
	}
	delete(m.s.reservations, id)
	return true, nil
}

func (m memReservations) DeleteByBuyerAndArtworkIDs(_ context.Context, buyerID int64, artworkIDs []int64) (int64, error) {
	want := map[int64]bool{}
	for _, id := range artworkIDs {
		want[id] = true
	}
	var n int64
	for id, r := range m.s.reservations {
		if r.BuyerID == buyerID && want[r.ArtworkID] {
			delete(m.s.reservations, id)
			n++
		}
	}
	return n, nil
}

// ---- orders

type memOrders struct{ s *memStore }

func (m memOrders) FindByID(_ context.Context, id int64) (model.Order, error) {
	o, ok := m.s.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) ListByBuyerID(_ context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error) {
	out := []model.Order{}
	for _, o := range m.s.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (m memOrders) Create(_ context.Context, o model.Order) (int64, error) {
	if m.s.failOrderCreate != nil {
		return 0, m.s.failOrderCreate
	}
	for _, ex := range m.s.orders {
		if ex.IdempotencyKey == o.IdempotencyKey {
			return 0, repo.ErrDuplicate
		}
	}
	o.ID = m.s.id()
	o.CreatedAt = time.Now()
	m.s.orders[o.ID] = o
	return o.ID, nil
}

func (m memOrders) UpdateStatus(_ context.Context, id int64, status model.OrderStatus) error {
	o, ok := m.s.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	m.s.orders[id] = o
	return nil
}

func (m memOrders) FindByIdempotencyKey(_ context.Context, buyerID int64, key string) (model.Order, bool, error) {
	for _, o := range m.s.orders {
		if o.BuyerID == buyerID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (m memOrders) ExistsByPaymentIntentID(_ context.Context, intentID string) (bool, error) {
	for _, o := range m.s.orders {
		if o.PaymentIntentID == intentID {
			return true, nil
		}
	}
	return false, nil
}

func (m memOrders) FindOpenByArtworkID(_ context.Context, artworkID int64) (model.Order, error) {
	for _, it := range m.s.orderArtworks {
		if it.ArtworkID != artworkID {
			continue
		}
		if o, ok := m.s.orders[it.OrderID]; ok && o.Status != model.OrderStatusCancelled {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (m memOrders) ListAdmin(_ context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	out := []model.Order{}
	for _, o := range m.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

type memOrderArtworks struct{ s *memStore }

func (m memOrderArtworks) CreateBulk(_ context.Context, orderID int64, items []model.OrderArtwork) error {
	for _, it := range items {
		it.ID = m.s.id()
		it.OrderID = orderID
		m.s.orderArtworks = append(m.s.orderArtworks, it)
	}
	return nil
}

func (m memOrderArtworks) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderArtwork, error) {
	out := []model.OrderArtwork{}
	for _, it := range m.s.orderArtworks {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

// ---- shipping rates

type memRates struct{ s *memStore }

func (m memRates) FindByCountry(_ context.Context, country string) (model.ShippingRate, error) {
	r, ok := m.s.rates[strings.ToLower(strings.TrimSpace(country))]
	if !ok {
		return model.ShippingRate{}, repo.ErrNotFound
	}
	return r, nil
}

func (m memRates) List(_ context.Context) ([]model.ShippingRate, error) {
	out := []model.ShippingRate{}
	for _, r := range m.s.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out, nil
}

func (m memRates) Upsert(_ context.Context, rate model.ShippingRate) (model.ShippingRate, error) {
	key := strings.ToLower(rate.Country)
	if ex, ok := m.s.rates[key]; ok {
		rate.ID = ex.ID
	} else {
		rate.ID = m.s.id()
	}
	m.s.rates[key] = rate
	return rate, nil
}

// ---- payouts

type memPayouts struct{ s *memStore }

func (m memPayouts) FindByArtworkID(_ context.Context, artworkID int64) (model.Payout, error) {
	for _, p := range m.s.payouts {
		if p.ArtworkID == artworkID {
			return p, nil
		}
	}
	return model.Payout{}, repo.ErrNotFound
}

func (m memPayouts) Create(_ context.Context, p model.Payout) (model.Payout, error) {
	for _, ex := range m.s.payouts {
		if ex.ArtworkID == p.ArtworkID {
			return model.Payout{}, repo.ErrDuplicate
		}
	}
	p.ID = m.s.id()
	m.s.payouts[p.ID] = p
	return p, nil
}

func (m memPayouts) Retry(_ context.Context, id int64, from model.PayoutStatus, key string) (bool, error) {
	p, ok := m.s.payouts[id]
	if !ok || p.Status != from || from == model.PayoutStatusPending || from == model.PayoutStatusCompleted {
		return false, nil
	}
	p.Status = model.PayoutStatusPending
	p.FailureReason = ""
	p.IdempotencyKey = key
	p.Attempts++
	m.s.payouts[id] = p
	return true, nil
}

func (m memPayouts) MarkCompleted(_ context.Context, id int64, transferID string) error {
	p, ok := m.s.payouts[id]
	if !ok || p.Status != model.PayoutStatusPending {
		return repo.ErrNotFound
	}
	p.Status = model.PayoutStatusCompleted
	p.TransferID = transferID
	m.s.payouts[id] = p
	return nil
}

func (m memPayouts) MarkFailed(_ context.Context, id int64, reason string) error {
	p, ok := m.s.payouts[id]
	if !ok || p.Status != model.PayoutStatusPending {
		return repo.ErrNotFound
	}
	p.Status = model.PayoutStatusFailed
	p.FailureReason = reason
	m.s.payouts[id] = p
	return nil
}

func (m memPayouts) MarkUnknown(_ context.Context, id int64, reason string) error {
	p, ok := m.s.payouts[id]
	if !ok || p.Status != model.PayoutStatusPending {
		return repo.ErrNotFound
	}
	p.Status = model.PayoutStatusUnknown
	p.FailureReason = reason
	m.s.payouts[id] = p
	return nil
}

func (m memPayouts) ExistsBlockingForArtworks(_ context.Context, ids []int64) (bool, error) {
	for _, p := range m.s.payouts {
		for _, id := range ids {
			if p.ArtworkID == id && p.Blocking() {
				return true, nil
			}
		}
	}
	return false, nil
}

// ---- users

type memUsers struct{ s *memStore }

func (m memUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.s.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (m memUsers) SetPayoutAccountID(_ context.Context, id int64, accountID string) error {
	u, ok := m.s.users[id]
	if !ok {
		return repo.ErrUserNotFound
	}
	if u.PayoutAccountID != "" && u.PayoutAccountID != accountID {
		return repo.ErrDuplicate
	}
	u.PayoutAccountID = accountID
	m.s.users[id] = u
	return nil
}

// ---- audit logs

type memAudit struct{ s *memStore }

func (m memAudit) Create(_ context.Context, l model.AuditLog) error {
	l.ID = m.s.id()
	m.s.audit = append(m.s.audit, l)
	return nil
}

func (m memAudit) List(_ context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	for i := len(m.s.audit) - 1; i >= 0; i-- {
		l := m.s.audit[i]
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// =====================
// Gateway mock
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateConnectedAccount(ctx context.Context, req payments.ConnectedAccountRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) Charge(ctx context.Context, req payments.ChargeRequest) (payments.Charge, error) {
	args := m.Called(ctx, req)
	ch, _ := args.Get(0).(payments.Charge)
	return ch, args.Error(1)
}

func (m *GatewayMock) ConfirmCharge(ctx context.Context, req payments.ConfirmChargeRequest) (payments.ChargeStatus, error) {
	args := m.Called(ctx, req)
	st, _ := args.Get(0).(payments.ChargeStatus)
	return st, args.Error(1)
}

func (m *GatewayMock) LookupCharge(ctx context.Context, intentID string) (payments.ChargeDetails, error) {
	args := m.Called(ctx, intentID)
	d, _ := args.Get(0).(payments.ChargeDetails)
	return d, args.Error(1)
}

func (m *GatewayMock) Transfer(ctx context.Context, req payments.TransferRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) CancelCharge(ctx context.Context, req payments.CancelChargeRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// =====================
// helpers
// =====================

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// 審査済み・空きの作品を入れる
func (s *memStore) addArtwork(sellerID int64, price string, mutate ...func(*model.Artwork)) model.Artwork {
	a := model.Artwork{
		ID:          s.id(),
		SellerID:    sellerID,
		Title:       "Untitled",
		Category:    model.ArtworkCategoryPainting,
		Price:       dec(price),
		WeightKg:    dec("2"),
		LengthCm:    dec("20"),
		WidthCm:     dec("20"),
		HeightCm:    dec("10"),
		Status:      model.ArtworkStatusVerified,
		IsAvailable: true,
	}
	c, n := a.Price.Mul(dec("0.15")), a.Price.Mul(dec("0.85"))
	a.Commission, a.NetEarnings = c, n
	for _, fn := range mutate {
		fn(&a)
	}
	s.artworks[a.ID] = a
	return a
}

func (s *memStore) addRate(country string, base, perKg, perCubic string) {
	s.rates[strings.ToLower(country)] = model.ShippingRate{
		ID:                s.id(),
		Country:           country,
		BaseRate:          dec(base),
		PerKgRate:         dec(perKg),
		PerCubicMeterRate: dec(perCubic),
	}
}

func (s *memStore) artwork(id int64) model.Artwork {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artworks[id]
}

func (s *memStore) reservationCount(artworkID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reservations {
		if r.ArtworkID == artworkID {
			n++
		}
	}
	return n
}
