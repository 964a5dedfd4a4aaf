package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/bot"
	"github.com/ariefcatur/go-storefront-bot/internal/redisx"
	"github.com/go-chi/chi/v5"
)

// Bot is satisfied by *bot.Service.
type Bot interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
}

// EventsHandler is the webhook a chat gateway posts user interactions to.
type EventsHandler struct {
	Bot   Bot
	Dedup redisx.Deduper // optional
	Log   *slog.Logger
}

type EventReq struct {
	EventID  string `json:"event_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Text     string `json:"text"`
}

type EventResp struct {
	Reply     *bot.Reply `json:"reply,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty"`
}

func (h *EventsHandler) Register(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/start", h.handle(bot.EventStart))
		r.Post("/button", h.handle(bot.EventButton))
		r.Post("/text", h.handle(bot.EventText))
	})
}

func (h *EventsHandler) handle(kind bot.EventKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EventReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if id := r.Header.Get("X-Event-Id"); id != "" {
			req.EventID = id
		}
		if req.UserID == 0 ||
			(kind == bot.EventButton && req.Token == "") ||
			(kind == bot.EventText && req.Text == "") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Gateways retry on timeouts; a repeated event id is acknowledged
		// without running the handler twice.
		if h.Dedup != nil && req.EventID != "" {
			first, err := h.Dedup.FirstSeen(ctx, req.EventID)
			if err != nil {
				h.Log.ErrorContext(ctx, "dedup", "event_id", req.EventID, "err", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "dedup unavailable"})
				return
			}
			if !first {
				writeJSON(w, http.StatusOK, EventResp{Duplicate: true})
				return
			}
		}

		reply := h.Bot.Handle(ctx, bot.Event{
			ID:       req.EventID,
			Kind:     kind,
			UserID:   req.UserID,
			Username: req.Username,
			Token:    req.Token,
			Text:     req.Text,
		})
		writeJSON(w, http.StatusOK, EventResp{Reply: &reply})
	}
}
