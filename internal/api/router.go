package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rammm2005/api-3des/internal/api/middleware"
	"github.com/rammm2005/api-3des/internal/handlers"
	"github.com/rammm2005/api-3des/internal/hub"
	"github.com/rammm2005/api-3des/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, liveHub *hub.Hub, redisStore *store.RedisStore, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(10 << 20)) // images arrive base64-encoded in JSON

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting guards the OTP endpoints; skipped when Redis is absent
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger)
		r.Use(limiter.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Live channel: zero-payload new-message notifications
	r.Get("/ws", liveHub.ServeWS)

	// Auth flow (no session required)
	r.Post("/register", h.Register)
	r.Post("/request-otp", h.RequestOTP)
	r.Post("/verify-otp", h.VerifyOTP)

	// Session-guarded operations
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireEmail)

		r.Post("/chat/send", h.SendMessage)
		r.Post("/chat/decrypt", h.DecryptMessage)
		r.Get("/chat/all", h.ListChat)
		r.Get("/chat/images", h.ListImages)
		r.Post("/upload-image", h.UploadImage)
		r.Get("/image/{id}", h.FetchImage)
	})

	return r
}
