// Package relay feeds chat events arriving over Kafka into the bot and
// publishes the replies back for the chat transport to deliver.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ariefcatur/go-storefront-bot/internal/bot"
	kafkax "github.com/ariefcatur/go-storefront-bot/internal/kafka"
	"github.com/ariefcatur/go-storefront-bot/internal/notify"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/ariefcatur/go-storefront-bot/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
)

// Handler is satisfied by *bot.Service.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
}

type ReplyPayload struct {
	EventID string    `json:"event_id"`
	UserID  int64     `json:"user_id"`
	Reply   bot.Reply `json:"reply"`
}

var inbound = map[string]bot.EventKind{
	orders.EventChatStarted:   bot.EventStart,
	orders.EventButtonPressed: bot.EventButton,
	orders.EventTextReceived:  bot.EventText,
}

type Service struct {
	Bot         Handler
	Dedup       redisx.Deduper
	Replies     notify.Publisher
	ServiceName string
	Log         *slog.Logger
}

// HandleMessage is installed as the consumer handler. Messages that can
// never be processed are logged and committed; a nil error means the
// offset may move on.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	// 1) producers that tag messages let foreign events skip decoding
	if t := kafkax.Header(m, kafkax.HeaderEventType); t != "" {
		if _, ok := inbound[t]; !ok {
			return nil
		}
	}

	// 2) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.WarnContext(ctx, "drop undecodable message", "offset", m.Offset, "err", err)
		return nil
	}
	kind, ok := inbound[env.EventType]
	if !ok {
		return nil
	}

	// 3) decode payload
	ev, err := kafkax.UnwrapPayload[bot.Event](env.Payload)
	if err != nil {
		s.Log.WarnContext(ctx, "drop event", "event_id", env.EventID, "type", env.EventType, "err", err)
		return nil
	}
	ev.Kind = kind
	if ev.ID == "" {
		ev.ID = env.EventID
	}

	// 4) dedup on the event id; redeliveries are acknowledged without effect
	first, err := s.Dedup.FirstSeen(ctx, ev.ID)
	if err != nil {
		return err
	}
	if !first {
		s.Log.DebugContext(ctx, "duplicate event", "event_id", ev.ID)
		return nil
	}

	// 5) dispatch and publish the reply keyed by user so it keeps order
	reply := s.Bot.Handle(ctx, ev)
	out := notify.NewEnvelope(ctx, s.ServiceName, orders.EventReplyReady, ev.ID,
		ReplyPayload{EventID: ev.ID, UserID: ev.UserID, Reply: reply})
	out.TraceID = env.TraceID
	return s.Replies.Publish(orders.UserKey(ev.UserID), kafkax.MustMarshal(out),
		kafkax.EventHeaders(orders.EventReplyReady, out.EventVersion)...)
}
