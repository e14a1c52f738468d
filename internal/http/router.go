package http

import (
	"net/http"
)

// RouterConfig wires handlers and middleware into the API router. Routes
// outside /healthz and /metrics pass through Auth.
type RouterConfig struct {
	Resources    *ResourceHandler
	Reservations *ReservationHandler
	Metrics      http.Handler
	Auth         func(http.Handler) http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Auth == nil {
			return h
		}
		return cfg.Auth(h)
	}

	if cfg.Resources != nil {
		mux.Handle("GET /resources", protect(cfg.Resources.List))
		mux.Handle("POST /resources", protect(cfg.Resources.Create))
		mux.Handle("GET /resources/{id}", protect(cfg.Resources.Get))
		mux.Handle("PATCH /resources/{id}", protect(cfg.Resources.Update))
	}

	if cfg.Reservations != nil {
		mux.Handle("GET /resources/{id}/availability", protect(cfg.Reservations.Availability))
		mux.Handle("GET /reservations", protect(cfg.Reservations.List))
		mux.Handle("POST /reservations", protect(cfg.Reservations.Create))
		mux.Handle("GET /reservations/expiring-soon", protect(cfg.Reservations.ExpiringSoon))
		mux.Handle("GET /reservations/{id}", protect(cfg.Reservations.Get))
		mux.Handle("PATCH /reservations/{id}", protect(cfg.Reservations.Update))
		mux.Handle("POST /reservations/{id}/cancel", protect(cfg.Reservations.Cancel))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
