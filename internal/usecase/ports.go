package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"artmarket/internal/infra/messaging"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// イベント送信は失敗しても業務は止めない（ログだけ）
func publish(ctx context.Context, pub messaging.Publisher, log *zap.Logger, ev messaging.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("event publish failed",
			zap.String("event_type", ev.Type),
			zap.String("key", ev.Key),
			zap.Error(err),
		)
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func orNopPublisher(pub messaging.Publisher) messaging.Publisher {
	if pub == nil {
		return messaging.Nop{}
	}
	return pub
}
