// Package server exposes the chat session store over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options configures a Server
type Options struct {
	Addr            string
	Models          []internal.ModelInfo
	DefaultModel    string
	RateLimit       internal.RateLimitConfig
	ShutdownTimeout time.Duration
}

// Server serves the session store, the deep-link router and the dispatcher
type Server struct {
	echo       *echo.Echo
	store      *internal.Store
	router     *internal.Router
	dispatcher *internal.Dispatcher
	limiter    *RateLimiter
	opts       Options
}

// New wires the HTTP routes onto store and dispatcher
func New(store *internal.Store, dispatcher *internal.Dispatcher, opts Options) *Server {
	if len(opts.Models) == 0 {
		opts.Models = internal.DefaultModels
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = opts.Models[0].ID
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo:       e,
		store:      store,
		router:     internal.NewRouter(store),
		dispatcher: dispatcher,
		limiter:    NewRateLimiter(opts.RateLimit.PerSecond, opts.RateLimit.Burst),
		opts:       opts,
	}
	s.router.OnChange(func(path string) {
		internal.LogDebug("Active path is now %s", path)
	})

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: newRequestID,
	}))
	e.Use(accessLog())
	e.Use(middleware.Recover())

	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Router returns the deep-link router bound to the store
func (s *Server) Router() *internal.Router {
	return s.router
}

// Start listens on the configured address until ctx is canceled, then shuts down
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		internal.LogInfo("Listening on %s", s.opts.Addr)
		errCh <- s.echo.Start(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		s.router.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.router.Close()
	internal.LogInfo("Shutting down HTTP server")
	if err := s.echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/healthz", s.health)
	e.GET("/", s.home)
	e.GET("/chat", s.home)
	e.GET("/chat/:id", s.openChat)

	api := e.Group("/api")
	api.GET("/state", s.state)
	api.GET("/models", s.models)
	api.GET("/chats", s.listChats)
	api.POST("/chats", s.createChat)
	api.POST("/chats/reorder", s.reorderChats)
	api.GET("/chats/:id", s.getChat)
	api.PATCH("/chats/:id", s.renameChat)
	api.DELETE("/chats/:id", s.deleteChat)
	api.POST("/chats/:id/select", s.selectChat)
	api.GET("/chats/:id/messages", s.chatMessages)
	api.GET("/chats/:id/export", s.exportChat)
	api.POST("/messages", s.sendMessage, s.limiter.Middleware())
}
