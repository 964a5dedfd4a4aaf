package notify

import (
	"context"
	"log/slog"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-bot/internal/kafka"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) error
}

// Message is an unsolicited message to a user, e.g. a status change.
type Message struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// LogNotifier only logs. It stands in when no transport is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, m Message) error {
	n.Log.InfoContext(ctx, "notification", "user_id", m.UserID, "text", m.Text)
	return nil
}

// KafkaNotifier hands notifications to the chat transport through Kafka.
type KafkaNotifier struct {
	Producer Publisher
	Service  string
}

func (n KafkaNotifier) Notify(ctx context.Context, m Message) error {
	env := NewEnvelope(ctx, n.Service, orders.EventNotification, "", m)
	return n.Producer.Publish(orders.UserKey(m.UserID), kafkax.MustMarshal(env),
		kafkax.EventHeaders(orders.EventNotification, 1)...)
}

// NewEnvelope wraps payload in a v1 envelope. The trace id is the HTTP
// request id when there is one.
func NewEnvelope(ctx context.Context, service, eventType, correlationID string, payload any) orders.Envelope {
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
}
