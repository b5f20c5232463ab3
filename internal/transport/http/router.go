package http

import (
	"log/slog"
	"net/http"
	"time"

	"activity-player/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the websocket gateway and the health probe.
func NewRouter(service *app.PlayerService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	ws := NewWSHandler(service, logger)
	r.Get("/ws", ws.ServeWS)
	r.With(middleware.Timeout(5*time.Second)).Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}
