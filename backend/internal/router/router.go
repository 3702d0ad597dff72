package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/anonboard/backend/internal/setup"
	mw "github.com/itchan-dev/anonboard/shared/middleware"
	"github.com/itchan-dev/anonboard/shared/middleware/metrics"
)

// New creates the chi router with all the routes.
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Metrics first so it sees the final status code and the matched route pattern
	r.Use(metrics.Middleware)

	// Enable gzip compression for all responses
	r.Use(func(next http.Handler) http.Handler {
		return gzhttp.GzipHandler(next)
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Public.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// JSON and plain text API only, nothing to load or frame
	backendCSP := "default-src 'none'; frame-ancestors 'self'"
	r.Use(mw.SecurityHeadersWithCSP(deps.Config.Public.HTTPS, backendCSP))

	r.Use(chimw.Recoverer)

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/threads/{board}", func(r chi.Router) {
			r.Post("/", h.CreateThread)
			r.Get("/", h.ListThreads)
			r.Put("/", h.ReportThread)
			r.Delete("/", h.DeleteThread)
		})
		r.Route("/replies/{board}", func(r chi.Router) {
			r.Post("/", h.CreateReply)
			r.Get("/", h.GetThread)
			r.Put("/", h.ReportReply)
			r.Delete("/", h.DeleteReply)
		})
	})

	return r
}
