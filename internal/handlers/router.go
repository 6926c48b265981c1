package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nightfall/internal/config"
	localMiddleware "nightfall/internal/middleware"
)

// RouterOptions allows customization of router setup for tests
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
}

// SetupRouter creates the application router with all routes and middleware
func SetupRouter(h *Handler, cfg *config.ServerConfig, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	if !opts.DisableRequestLogger {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Use(localMiddleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(localMiddleware.SecurityHeaders())

	if !opts.DisableRateLimiting {
		rateLimiter := localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
	}

	// Game API. Identity rides on the session cookie; the SSE route has
	// no request timeout, so it sits outside the timed group.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

		r.Post("/api/games", h.CreateGame)
		r.Post("/api/games/join", h.JoinGame)
		r.Get("/api/games/{id}", h.GameView)
		r.Get("/api/games/{id}/qr", h.GameQR)
		r.Post("/api/games/{id}/start", h.StartGame)
		r.Post("/api/games/{id}/action", h.SubmitAction)
		r.Post("/api/games/{id}/suspicion", h.CastSuspicion)
		r.Post("/api/games/{id}/force-end", h.ForceEndRound)
		r.Post("/api/games/{id}/restart", h.RestartGame)
		r.Post("/api/games/{id}/ready", h.AcceptNextGame)
	})

	r.Get("/sse/games/{id}", h.StreamGame)

	// Health check endpoints (no auth required)
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
