// Package server provides the HTTP server for the watch try-on shop.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"watch-tryon/internal/auth"
	"watch-tryon/internal/server/api"
	"watch-tryon/internal/store"
	"watch-tryon/internal/thumbnail"
)

// Config holds the server configuration.
type Config struct {
	Store      *store.Store
	TryOn      api.TryOnService
	Auth       *auth.Service
	Thumbnails *thumbnail.Cache

	// ImageDir holds product images, served at /images/ and used to resolve
	// watch_id try-on requests.
	ImageDir string

	// StaticDir, when set, is served at the web root.
	StaticDir string

	// MaxUploadBytes caps request bodies; zero disables the cap.
	MaxUploadBytes int64

	// RateLimit allows this many requests per client IP per RateWindow;
	// zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Server represents the HTTP server for the try-on application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()

	s.handler = http.Handler(s.mux)
	if config.MaxUploadBytes > 0 {
		s.handler = maxBytesHandler(s.handler, config.MaxUploadBytes)
	}
	if config.RateLimit > 0 && config.RateWindow > 0 {
		s.handler = newRateLimiter(config.RateLimit, config.RateWindow).handler(s.handler)
	}

	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.TryOn != nil {
		tryOnHandler := api.NewTryOnHandler(s.config.TryOn, s.config.Store, s.config.ImageDir)
		s.mux.Handle("/api/try-on", tryOnHandler)
		s.mux.Handle("/api/extract-hand", tryOnHandler)
		s.mux.Handle("/api/extract-watch", tryOnHandler)
	}

	if s.config.Store != nil {
		productHandler := api.NewProductHandler(s.config.Store)
		s.mux.Handle("/api/products", productHandler)
		s.mux.Handle("/api/products/", productHandler)

		if s.config.Auth != nil {
			authHandler := api.NewAuthHandler(s.config.Store, s.config.Auth)
			s.mux.Handle("/api/auth/", authHandler)

			cartHandler := api.NewCartHandler(s.config.Store, s.config.Auth)
			s.mux.Handle("/api/cart", cartHandler)
			s.mux.Handle("/api/cart/", cartHandler)

			wishlistHandler := api.NewWishlistHandler(s.config.Store, s.config.Auth)
			s.mux.Handle("/api/wishlist", wishlistHandler)
			s.mux.Handle("/api/wishlist/", wishlistHandler)
		}
	}

	if s.config.Thumbnails != nil {
		s.mux.Handle("/api/thumbnails", api.NewThumbnailHandler(s.config.Thumbnails))
	}

	// Serve product images if ImageDir is configured
	if s.config.ImageDir != "" {
		fs := http.FileServer(http.Dir(s.config.ImageDir))
		s.mux.Handle("/images/", http.StripPrefix("/images/", fs))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
