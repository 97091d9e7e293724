package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mshogin/flownodes/internal/infrastructure/config"
)

// NewRouter wires the handler into a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware())

	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)

	r.Get("/"+config.NodeTypeWorkspaceManager+"/vcap", h.BoundService(config.ServiceConversation))
	r.Get("/"+config.NodeTypeNLU+"/vcap", h.BoundService(config.ServiceNLU))

	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", h.ListNodes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNode)
			r.Put("/", h.ConfigureNode)
			r.Get("/status", h.NodeStatus)
			r.Post("/messages", h.SendMessage)
		})
	})

	return r
}

// CORSMiddleware allows browser-based flow editors to call the API.
func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
