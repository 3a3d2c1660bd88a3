// Package worker は定期実行のバックグラウンド処理。
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// usecase.CartUsecase
type ReservationReleaser interface {
	SweepExpired(ctx context.Context, ttl time.Duration) (int, error)
}

// redisx.Locker（nilなら単独実行）
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key string, token string) error
}

type SweeperConfig struct {
	TTL      time.Duration
	Interval time.Duration
	LockKey  string
}

// ReservationSweeper は期限切れのカート押さえを定期的に解除する。
type ReservationSweeper struct {
	releaser ReservationReleaser
	locker   Locker
	cfg      SweeperConfig
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReservationSweeper(releaser ReservationReleaser, locker Locker, cfg SweeperConfig, log *zap.Logger) *ReservationSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &ReservationSweeper{releaser: releaser, locker: locker, cfg: cfg, log: log}
}

// Start は別goroutineで回し始める。二重に呼んでも1つだけ
func (s *ReservationSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.log.Info("reservation sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("ttl", s.cfg.TTL),
	)
}

// Stop は実行中の1回が終わるまで待つ
func (s *ReservationSweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("reservation sweeper stopped")
}

func (s *ReservationSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("reservation sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce は1回分。ロックが取れなければ何もしない（他のレプリカが担当）
func (s *ReservationSweeper) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, s.cfg.LockKey, s.cfg.Interval)
		if err != nil {
			return 0, err
		}
		if !ok {
			s.log.Debug("reservation sweep skipped, lock held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), s.cfg.LockKey, token); err != nil {
				s.log.Warn("release sweeper lock", zap.Error(err))
			}
		}()
	}

	n, err := s.releaser.SweepExpired(ctx, s.cfg.TTL)
	if n > 0 {
		s.log.Info("expired reservations released", zap.Int("count", n))
	}
	return n, err
}
