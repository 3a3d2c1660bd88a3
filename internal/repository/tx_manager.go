package repository

import "context"

// TxRepos は同じトランザクションに乗ったrepository一式。
// fnの外に持ち出さないこと。
type TxRepos interface {
	Artworks() ArtworkRepository
	Reservations() CartReservationRepository
	Orders() OrderRepository
	OrderArtworks() OrderArtworkRepository
	ShippingRates() ShippingRateRepository
	Payouts() PayoutRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
}

// fnがエラーを返せばrollback、nilならcommit。
// 外部API（決済）はfnの中で呼ばない。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
