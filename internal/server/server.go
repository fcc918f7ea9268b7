// Package server exposes a type graph and its annotations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conduit-lang/lineage/pkg/annotations"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// Config holds server configuration
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// JWTSecret enables bearer authentication when set
	JWTSecret string `mapstructure:"jwt_secret"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Address returns host:port
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server serves the current resolver. Swap replaces it while serving.
type Server struct {
	config   Config
	resolver atomic.Pointer[annotations.Resolver]
	logger   *zap.Logger
	tokens   *TokenService
	router   chi.Router
}

// New creates a server for resolver
func New(resolver *annotations.Resolver, config Config, logger *zap.Logger) (*Server, error) {
	if resolver == nil {
		return nil, errors.New("resolver cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		logger: logger,
	}
	s.resolver.Store(resolver)
	if config.JWTSecret != "" {
		tokens, err := NewTokenService(config.JWTSecret)
		if err != nil {
			return nil, err
		}
		s.tokens = tokens
	}
	s.router = s.routes()
	return s, nil
}

// Swap replaces the resolver used by subsequent requests
func (s *Server) Swap(resolver *annotations.Resolver) {
	if resolver == nil {
		return
	}
	s.resolver.Store(resolver)
}

// Resolver returns the resolver currently served
func (s *Server) Resolver() *annotations.Resolver {
	return s.resolver.Load()
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Tokens returns the token service, or nil when authentication is off
func (s *Server) Tokens() *TokenService {
	return s.tokens
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.config.Address(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", httpServer.Addr), zap.Bool("auth", s.tokens != nil))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(recoverErrors(s.logger))
	if s.tokens != nil {
		r.Use(requireToken(s.tokens, s.logger, "/healthz"))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, s.logger, http.StatusNotFound, "no route for "+r.URL.Path)
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/types", func(r chi.Router) {
		r.Get("/", s.handleListTypes)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetType)
			r.Get("/ancestors", s.handleAncestors)
			r.Get("/annotations/{annotation}", s.handleTypeAnnotation)
			r.Get("/methods/{signature}/annotations/{annotation}", s.handleMethodAnnotation)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	g := s.Resolver().Graph()
	renderJSON(w, s.logger, http.StatusOK, map[string]any{
		"status":      "ok",
		"fingerprint": g.Fingerprint(),
		"types":       g.Len(),
	})
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types := s.Resolver().Graph().Types()
	views := make([]TypeView, 0, len(types))
	for _, t := range types {
		views = append(views, ViewOf(t, false))
	}
	renderJSON(w, s.logger, http.StatusOK, views)
}

func (s *Server) handleGetType(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupType(w, r)
	if !ok {
		return
	}
	renderJSON(w, s.logger, http.StatusOK, ViewOf(t, true))
}

func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupType(w, r)
	if !ok {
		return
	}
	names := []string{}
	for a := range typegraph.Ancestors(t) {
		names = append(names, a.QualifiedName())
	}
	renderJSON(w, s.logger, http.StatusOK, map[string]any{
		"type":      t.QualifiedName(),
		"ancestors": names,
	})
}

func (s *Server) handleTypeAnnotation(w http.ResponseWriter, r *http.Request) {
	name, annotation := param(r, "name"), param(r, "annotation")
	res, err := s.Resolver().FindClass(r.Context(), name, annotation)
	s.renderResolution(w, res, err)
}

func (s *Server) handleMethodAnnotation(w http.ResponseWriter, r *http.Request) {
	name, sig, annotation := param(r, "name"), param(r, "signature"), param(r, "annotation")
	res, err := s.Resolver().FindNamed(r.Context(), name, sig, annotation)
	s.renderResolution(w, res, err)
}

func (s *Server) renderResolution(w http.ResponseWriter, res annotations.Resolution, err error) {
	switch {
	case errors.Is(err, annotations.ErrUnknownType), errors.Is(err, annotations.ErrUnknownMethod):
		renderError(w, s.logger, http.StatusNotFound, err.Error())
	case err != nil:
		renderError(w, s.logger, http.StatusBadRequest, err.Error())
	default:
		renderJSON(w, s.logger, http.StatusOK, res)
	}
}

func (s *Server) lookupType(w http.ResponseWriter, r *http.Request) (*typegraph.TypeNode, bool) {
	name := param(r, "name")
	t, ok := s.Resolver().Graph().Type(name)
	if !ok {
		renderError(w, s.logger, http.StatusNotFound, "unknown type: "+name)
		return nil, false
	}
	return t, true
}

func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
