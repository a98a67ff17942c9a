package server

import (
	"net/http"

	"hrportal/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router configures all HTTP routes and middleware
func (s *Server) Router(om *observability.ObservabilityManager) http.Handler {
	metrics := om.GetMetrics()
	starter := instrumentStarter(s.Starter, metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.pageHandler)
	r.Get("/download", s.downloadHandler)
	r.Get("/api/session", s.sessionHandler)
	r.Get("/health", s.healthHandler)
	r.Get("/stats", s.statsHandler)

	if endpoint, handler, ok := om.MetricsHandler(); ok {
		r.Handle(endpoint, handler)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware(metrics))
		r.Use(s.requestSizeLimitMiddleware)

		r.Post("/review", s.createReviewHandler(om, starter))
		r.Post("/chat", s.createChatHandler(om))
		r.Post("/reset", s.resetHandler)
	})

	return om.HTTPMiddleware()(r)
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}

		next.ServeHTTP(w, r)
	})
}
