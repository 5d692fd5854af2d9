package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"kocmoc/internal/config"
	"kocmoc/internal/metrics"
	"kocmoc/internal/service"
)

// Services bundles everything the router hands to handlers.
type Services struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
	Users    *service.UserService
	Chats    *service.ChatService
	Messages *service.MessageService
	Stories  *service.StoryService
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.RequestTimeout) * time.Second))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName + " API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no session required)
		r.Route("/auth", func(r chi.Router) {
			r.Use(RateLimit(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst))
			r.Post("/register", handleRegister(svc.Auth))
			r.Post("/login", handleLogin(svc.Auth))
			r.Post("/send-code", handleSendCode(svc.Auth))
			r.Post("/verify-code", handleVerifyCode(svc.Auth))

			// Logout needs a live session to revoke.
			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(svc.Sessions))
				r.Post("/logout", handleLogout(svc.Auth))
				r.Get("/me", handleMe())
			})
		})

		// Everything below requires a valid session
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Sessions))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(svc.Users))
				r.Get("/{id}", handleGetUser(svc.Users))
				r.Put("/{id}", handleUpdateProfile(svc.Users))
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", handleListChats(svc.Chats))
				r.Post("/", handleCreateChat(svc.Chats))
				r.Get("/{id}", handleGetChat(svc.Chats))
				r.Delete("/{id}", handleDeleteChat(svc.Chats))
				r.Post("/{id}/members", handleAddMember(svc.Chats))
				r.Get("/{id}/messages", handleListMessages(svc.Messages))
				r.Post("/{id}/messages", handleCreateMessage(svc.Messages))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Put("/{id}", handleEditMessage(svc.Messages))
				r.Delete("/{id}", handleDeleteMessage(svc.Messages))
				r.Post("/{id}/forward", handleForwardMessage(svc.Messages))
			})

			r.Route("/stories", func(r chi.Router) {
				r.Get("/", handleListStories(svc.Stories))
				r.Post("/", handlePublishStory(svc.Stories))
				r.Post("/{id}/view", handleViewStory(svc.Stories))
			})
		})
	})

	return r
}
