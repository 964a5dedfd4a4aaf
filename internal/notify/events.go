package notify

import (
	"context"
	"log/slog"

	kafkax "github.com/ariefcatur/go-storefront-bot/internal/kafka"
)

// Emitter publishes domain events, one producer per topic. Topics without
// a producer are only logged at debug level. Publishing is best-effort.
type Emitter struct {
	service string
	pubs    map[string]Publisher
	log     *slog.Logger
}

func NewEmitter(service string, log *slog.Logger) *Emitter {
	return &Emitter{service: service, pubs: make(map[string]Publisher), log: log}
}

// Route sends events for topic to p.
func (e *Emitter) Route(topic string, p Publisher) *Emitter {
	e.pubs[topic] = p
	return e
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, correlationID string, key []byte, payload any) {
	env := NewEnvelope(ctx, e.service, eventType, correlationID, payload)
	p, ok := e.pubs[topic]
	if !ok {
		e.log.DebugContext(ctx, "event", "topic", topic, "type", eventType, "correlation_id", correlationID)
		return
	}
	if err := p.Publish(key, kafkax.MustMarshal(env), kafkax.EventHeaders(eventType, env.EventVersion)...); err != nil {
		e.log.WarnContext(ctx, "publish event", "topic", topic, "type", eventType, "err", err)
	}
}
