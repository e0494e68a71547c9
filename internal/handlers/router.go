package handlers

import (
	"net/http"
	"time"

	"connectiu-backend/internal/metrics"
	"connectiu-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Posts     *PostHandler
	Comments  *CommentHandler
	Follows   *FollowHandler
	Events    *EventHandler
	Chat      *ChatHandler
	Upload    *UploadHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
}

// RouterConfig holds the cross-cutting settings of the router
type RouterConfig struct {
	Validator      middleware.TokenValidator
	Redis          *redis.Client
	AuthRateLimit  int
	AuthRateWindow time.Duration
	CORSOrigin     string
	// TrustProxy rewrites RemoteAddr from forwarding headers; otherwise
	// rate limits key on the socket address
	TrustProxy bool
	// UploadDir is served at /uploads when set
	UploadDir string
}

// NewRouter builds the chi router with every API route
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(metrics.Middleware)

	requireAuth := middleware.RequireAuth(cfg.Validator)
	optionalAuth := middleware.OptionalAuth(cfg.Validator)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.Redis, "register", cfg.AuthRateLimit, cfg.AuthRateWindow)).
			Post("/register", h.Auth.Register)
		r.With(middleware.RateLimit(cfg.Redis, "login", cfg.AuthRateLimit, cfg.AuthRateWindow)).
			Post("/login", h.Auth.Login)

		// Public reads; a valid token personalizes liked/asistiendo flags
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/posts", h.Posts.Feed)
			r.Get("/posts/trending", h.Posts.Trending)
			r.Get("/posts/{id}/comments", h.Comments.ListComments)

			r.Get("/profile/{id}", h.Users.GetProfile)
			r.Get("/users", h.Users.ListUsers)
			r.Get("/users/search", h.Users.SearchUsers)
			r.Get("/users/suggestions", h.Users.Suggestions)

			r.Get("/follow/check/{followerId}/{followingId}", h.Follows.Check)
			r.Get("/followers/{id}", h.Follows.Followers)
			r.Get("/following/{id}", h.Follows.Following)
			r.Get("/friends/{userId}", h.Follows.Friends)
			r.Get("/friends/mutual/{userId}", h.Follows.Friends)

			r.Get("/eventos", h.Events.ListEvents)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/posts", h.Posts.CreatePost)
			r.Put("/posts/{id}", h.Posts.UpdatePost)
			r.Delete("/posts/{id}", h.Posts.DeletePost)
			r.Post("/posts/{id}/like", h.Posts.ToggleLike)
			r.Post("/posts/{id}/comments", h.Comments.AddComment)

			r.Put("/profile/{id}", h.Users.UpdateProfile)
			r.Put("/users/me/push-token", h.Users.UpdatePushToken)

			r.Post("/follow/{id}", h.Follows.Toggle)
			r.Delete("/follow/{id}", h.Follows.Unfollow)

			r.Post("/eventos", h.Events.CreateEvent)
			r.Post("/eventos/asistir", h.Events.ToggleAttendance)

			r.Post("/chat/send", h.Chat.Send)
			r.Get("/chat/conversations", h.Chat.Conversations)
			r.Get("/chat/history/{user1}/{user2}", h.Chat.History)
			r.Get("/chat/{conversationId}", h.Chat.Messages)

			if h.Upload != nil {
				r.Post("/upload", h.Upload.Upload)
			}
		})
	})

	if h.WebSocket != nil {
		r.Get("/ws", h.WebSocket.HandleWebSocket)
	}
	if h.Health != nil {
		r.Get("/health", h.Health.Health)
	}
	r.Handle("/metrics", metrics.Handler())

	if cfg.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
		r.Handle("/uploads/*", fs)
	}

	return r
}
