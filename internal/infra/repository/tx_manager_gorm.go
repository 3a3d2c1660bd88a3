package repository

import (
	"context"

	repo "artmarket/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	artworks      repo.ArtworkRepository
	reservations  repo.CartReservationRepository
	orders        repo.OrderRepository
	orderArtworks repo.OrderArtworkRepository
	shippingRates repo.ShippingRateRepository
	payouts       repo.PayoutRepository
	users         repo.UserRepository
	auditLogs     repo.AuditLogRepository
}

func (r *txReposGorm) Artworks() repo.ArtworkRepository             { return r.artworks }
func (r *txReposGorm) Reservations() repo.CartReservationRepository { return r.reservations }
func (r *txReposGorm) Orders() repo.OrderRepository                 { return r.orders }
func (r *txReposGorm) OrderArtworks() repo.OrderArtworkRepository   { return r.orderArtworks }
func (r *txReposGorm) ShippingRates() repo.ShippingRateRepository   { return r.shippingRates }
func (r *txReposGorm) Payouts() repo.PayoutRepository               { return r.payouts }
func (r *txReposGorm) Users() repo.UserRepository                   { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository           { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			artworks:      NewArtworkGormRepository(tx),
			reservations:  NewCartReservationGormRepository(tx),
			orders:        NewOrderGormRepository(tx),
			orderArtworks: NewOrderArtworkGormRepository(tx),
			shippingRates: NewShippingRateGormRepository(tx),
			payouts:       NewPayoutGormRepository(tx),
			users:         NewUserGormRepository(tx),
			auditLogs:     NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
