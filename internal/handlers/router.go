package handlers

import (
	"net/http"

	"social-posts-backend/internal/middleware"
	"social-posts-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries everything the router mounts
type RouterConfig struct {
	Users  *UserHandler
	Posts  *PostHandler
	Feed   *FeedHandler
	Health *HealthHandler
	Tokens middleware.TokenVerifier

	CORSOrigins []string
	// UploadsDir, when set, is served at /uploads/.
	UploadsDir string
}

// NewRouter builds the HTTP routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/health", cfg.Health.Check)
	r.Get("/usuarios", cfg.Users.ListUsers)
	r.Get("/usuario/{id}", cfg.Users.GetUser)
	r.Post("/registrarUsuario", cfg.Users.Register)
	r.Post("/iniciarSesion", cfg.Users.Login)
	r.Get("/posts", cfg.Posts.ListPosts)
	r.Get("/ws/posts", cfg.Feed.Subscribe)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Tokens))
		r.Put("/actualizarUsuario/{id}", cfg.Users.UpdateUser)
		r.Delete("/eliminarUsuario/{id}", cfg.Users.DeleteUser)
		r.Post("/crearPost", cfg.Posts.CreatePost)
		r.Delete("/eliminarPost/{id}", cfg.Posts.DeletePost)
	})

	if cfg.UploadsDir != "" {
		prefix := "/" + storage.Prefix + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	return r
}
