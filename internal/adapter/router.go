package adapter

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the account routes. The surface mirrors the service's
// public API under /api/v1/users.
func NewRouter(handler *AccountHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", handler.Register)
		r.Get("/", handler.List)
		r.Post("/verify", handler.Verify)
		r.Post("/login", handler.Login)
		r.Post("/refresh-token", handler.RefreshToken)
		r.Post("/change-password/{id}", handler.ChangePassword)
		r.Get("/generate-code/{email}", handler.RegenerateCode)
		r.Get("/email/{email}", handler.GetByEmail)
		r.Get("/{id}", handler.GetByID)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})

	return r
}
