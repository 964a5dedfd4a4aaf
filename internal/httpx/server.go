package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/logx"
	"github.com/ariefcatur/go-storefront-bot/internal/persist"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthFunc reports the state of persistence. It is satisfied by
// (*persist.Manager).Health.
type HealthFunc func() persist.Health

func NewRouter(log *slog.Logger, health HealthFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logx.Middleware(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := health()
		if !h.OK {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":        "degraded",
				"last_error":    h.LastError,
				"last_error_at": h.LastErrorAt,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
