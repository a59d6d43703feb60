package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomatomall/tomatomall/internal/auth"
	"github.com/tomatomall/tomatomall/internal/bookinfo"
	"github.com/tomatomall/tomatomall/internal/config"
	"github.com/tomatomall/tomatomall/internal/rating"
	"github.com/tomatomall/tomatomall/internal/repository"
	"github.com/tomatomall/tomatomall/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	ratings  *rating.Aggregator
	bookInfo bookinfo.Client
	auth     *auth.Resolver
	logger   *log.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, ratings *rating.Aggregator, bookClient bookinfo.Client, resolver *auth.Resolver, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		ratings:  ratings,
		bookInfo: bookClient,
		auth:     resolver,
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleListProducts)
		r.Post("/", s.handleCreateProduct)
		r.Get("/search/{query}", s.handleSearchProducts)
		r.Get("/category/{category}", s.handleProductsByCategory)
		r.Get("/stockpile/{productID}", s.handleGetStockpile)
		r.Patch("/stockpile/{productID}", s.handleSetStockpile)
		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", s.handleGetProduct)
			r.Put("/", s.handleUpdateProduct)
			r.Delete("/", s.handleDeleteProduct)
			r.Post("/like", s.handleLikeProduct)
			r.Post("/rating", s.handleSubmitRating)
			r.Get("/comments", s.handleListComments)
			r.Post("/comments", s.handleUpsertComment)
			r.Delete("/comments", s.handleDeleteComment)
		})
	})
	s.router.Put("/comments/{commentID}", s.handleUpdateComment)
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
