// Package server implements the HTTP edge (spec §6): a thin go-chi/chi/v5
// router exposing exactly the five endpoints named in the spec (ingest,
// search, edge update, episode delete, health) over the ingestion queue,
// search engine, citation service, and mutation service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kortexhq/kortex/pkg/citation"
	"github.com/kortexhq/kortex/pkg/config"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/search"
	"github.com/kortexhq/kortex/pkg/server/handlers"
	"github.com/kortexhq/kortex/pkg/types"
)

// Server wires the five spec §6 endpoints behind a chi router.
type Server struct {
	config    *config.Config
	store     graphstore.Store
	queue     *queue.Queue
	engine    *search.Engine
	citations *citation.Service
	mutation  *mutation.Service

	router *chi.Mux
	server *http.Server
}

// New constructs a Server. Call Setup before Start.
func New(cfg *config.Config, store graphstore.Store, q *queue.Queue, engine *search.Engine, citations *citation.Service, mutationSvc *mutation.Service) *Server {
	return &Server{
		config:    cfg,
		store:     store,
		queue:     q,
		engine:    engine,
		citations: citations,
		mutation:  mutationSvc,
	}
}

// Setup builds the router and its middleware chain.
func (s *Server) Setup() {
	s.router = chi.NewRouter()

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(corsMiddleware)
	s.router.Use(contextMiddleware)

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

func (s *Server) setupRoutes() {
	groupID := s.config.Queue.DefaultGroupID

	healthHandler := handlers.NewHealthHandler()
	ingestHandler := handlers.NewIngestHandler(s.store, s.queue, groupID)
	searchHandler := handlers.NewSearchHandler(s.engine, s.citations, groupID)
	mutationHandler := handlers.NewMutationHandler(s.mutation, s.queue, groupID)

	s.router.Get("/health", healthHandler.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", ingestHandler.Ingest)
		r.Post("/search", searchHandler.Search)
		r.Patch("/edge/{edge_id}", mutationHandler.UpdateEdge)
		r.Delete("/episode/{episode_id}", mutationHandler.DeleteEpisode)
	})
}

// Handler returns the server's router, for embedding in an httptest.Server
// or a custom http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. It blocks until the server stops or errors.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func contextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if groupID := r.Header.Get("X-Group-ID"); groupID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyGroupID, groupID)
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
