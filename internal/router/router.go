package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tutoria-backend/internal/handlers"
	"tutoria-backend/internal/middleware"
	"tutoria-backend/internal/models"
	"tutoria-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	schoolHandler *handlers.SchoolHandler,
	sessionHandler *handlers.SessionHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── School / Class / Subject Routes ────
		r.Route("/schools", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", schoolHandler.ListSchools)
			r.Get("/{id}/classes", schoolHandler.ListClasses)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/", schoolHandler.CreateSchool)
				r.Put("/{id}", schoolHandler.UpdateSchool)
				r.Delete("/{id}", schoolHandler.DeleteSchool)
				r.Post("/{id}/classes", schoolHandler.CreateClass)
				r.Delete("/{id}/classes/{classID}", schoolHandler.DeleteClass)
			})
		})

		r.Route("/subjects", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", schoolHandler.ListSubjects)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/", schoolHandler.CreateSubject)
				r.Delete("/{id}", schoolHandler.DeleteSubject)
			})
		})

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", sessionHandler.Schedule)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/start", sessionHandler.Start)
			r.Post("/{id}/complete", sessionHandler.Complete)
			r.Post("/{id}/cancel", sessionHandler.Cancel)
			r.Get("/{id}/timer", sessionHandler.Timer)
			r.Post("/{id}/timer/toggle", sessionHandler.ToggleTimer)
		})

		// ──── Dashboard ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", dashboardHandler.Stats)
		})

		// ──── WebSocket (token auth via query param) ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
