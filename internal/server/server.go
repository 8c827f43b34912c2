// Package server exposes the site content, the visual editor documents and
// goal runs over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/auth"
	"github.com/yolodolo42/sitepilot/internal/editor"
	"github.com/yolodolo42/sitepilot/internal/media"
	"github.com/yolodolo42/sitepilot/internal/store"
)

// GoalRunner runs one agent goal.
type GoalRunner interface {
	RunGoal(ctx context.Context, goal, pageID string) (*agent.RunResult, error)
}

// TokenVerifier checks admin bearer tokens.
type TokenVerifier interface {
	VerifyAdminToken(token string) (*auth.AdminToken, error)
}

// Options are the server's collaborators. Runner and Media may be nil; their
// routes then answer 503.
type Options struct {
	Repo        store.Repository
	Editor      *editor.Adapter
	Runner      GoalRunner
	Tokens      TokenVerifier
	Media       media.Uploader
	MediaFiles  http.Handler
	MediaPath   string
	MaxUpload   int64
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	opts   Options
	logger *slog.Logger
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Editor == nil {
		opts.Editor = editor.NewAdapter(opts.Repo, nil)
	}
	return &Server{opts: opts, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(CORS(s.opts.CORSOrigins))
	}

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/pages", s.listPages)
		r.Get("/pages/{slug}", s.getPage)
		r.Get("/pages/{slug}/editor", s.loadDocument)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(s.opts.Tokens))
			r.Put("/pages/{slug}/editor", s.saveDocument)
			r.Post("/agent/goals", s.runGoal)
			r.Get("/audit", s.listAudit)
			r.Post("/media", s.uploadMedia)
		})
	})

	if s.opts.MediaFiles != nil && strings.HasPrefix(s.opts.MediaPath, "/") {
		prefix := strings.TrimRight(s.opts.MediaPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, s.opts.MediaFiles))
	}

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),

		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Goal runs hold the connection for the whole run.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
