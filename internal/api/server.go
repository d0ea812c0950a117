// Package api provides the HTTP API server and handlers for the BookDen application.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookdenapp/bookden-server/internal/http/response"
	"github.com/bookdenapp/bookden-server/internal/ratelimit"
	"github.com/bookdenapp/bookden-server/internal/realtime"
	"github.com/bookdenapp/bookden-server/internal/search"
	"github.com/bookdenapp/bookden-server/internal/service"
)

// Searcher runs full-text queries over the book index.
type Searcher interface {
	Search(ctx context.Context, q string, limit, offset int) (*search.Result, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	bookService    *service.BookService
	commentService *service.CommentService
	commentChannel *realtime.Channel
	searcher       Searcher
	streamHandler  *realtime.Handler
	limiter        *ratelimit.KeyedRateLimiter
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// The limiter may be nil to disable per-client rate limiting.
func NewServer(bookService *service.BookService, commentService *service.CommentService, commentChannel *realtime.Channel, searcher Searcher, streamHandler *realtime.Handler, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		bookService:    bookService,
		commentService: commentService,
		commentChannel: commentChannel,
		searcher:       searcher,
		streamHandler:  streamHandler,
		limiter:        limiter,
		router:         chi.NewRouter(),
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(s.rateLimit)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleCreateBook)
			r.Post("/form", s.handleCreateBookFromForm)
			r.Get("/search", s.handleSearchBooks)

			r.Route("/{bookID}", func(r chi.Router) {
				r.Get("/", s.handleGetBook)
				r.Patch("/", s.handleUpdateBook)
				r.Put("/", s.handleUpdateBook)
				r.Delete("/", s.handleDeleteBook)

				r.Route("/comments", func(r chi.Router) {
					r.Get("/", s.handleListComments)
					r.Post("/", s.handlePostComment)
					r.Get("/stream", s.streamHandler.ServeHTTP)
				})
			})
		})
	})
}

// rateLimit rejects clients exceeding their per-IP request rate.
// Relies on middleware.RealIP having normalized RemoteAddr.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
