package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// イベント種別
const (
	EventArtworkReserved  = "artwork.reserved"
	EventArtworkReleased  = "artwork.released"
	EventOrderCreated     = "order.created"
	EventOrderStatus      = "order.status_changed"
	EventSellerPaidOut    = "seller.paid_out"
	EventArtworkModerated = "artwork.moderated"
)

// Event はブローカーに流す封筒
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func NewEvent(eventType string, key string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop はブローカー未設定のとき用
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
