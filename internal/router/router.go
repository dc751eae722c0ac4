package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/staffdesk/employee-api/internal/api/employee"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	EmployeeHandler        *employee.EmployeeHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdminMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes: no token required.
		r.Group(func(r chi.Router) {
			r.Post("/employees/login", cfg.EmployeeHandler.Login)
			r.Post("/employees/register", cfg.EmployeeHandler.Register)
		})

		// Protected routes: bearer token required. Per-record authorization
		// (own record vs admin) happens in the service layer against the
		// stored role, not the token's claim.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/employees/{id}", cfg.EmployeeHandler.GetByID)
			r.Put("/employees/{id}", cfg.EmployeeHandler.Update)
			r.Post("/employees/{id}/image", cfg.EmployeeHandler.UploadImage)

			// Admin-only surface.
			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireAdminMiddleware)
				r.Get("/employees", cfg.EmployeeHandler.GetAll)
				r.Delete("/employees/{id}", cfg.EmployeeHandler.Delete)
			})
		})
	})

	return r
}
