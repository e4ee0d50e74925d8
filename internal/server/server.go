package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lazypower/graphwalk/internal/explorer"
	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/logging"
	"github.com/lazypower/graphwalk/internal/store"
)

// Options configures the server beyond its database.
type Options struct {
	Logger *zap.Logger
	// Fetcher backs explorer sessions. Defaults to the server's own database.
	Fetcher       fetch.Fetcher
	Explorer      explorer.Options
	FrameInterval time.Duration
}

// Server is the graphwalk HTTP API server.
type Server struct {
	db      *store.DB
	fetcher fetch.Fetcher
	opts    Options
	log     *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database and version string.
func New(db *store.DB, version string, opts Options) *Server {
	s := &Server{
		db:      db,
		fetcher: opts.Fetcher,
		opts:    opts,
		log:     logging.OrNop(opts.Logger).Named("server"),
		version: version,
		started: time.Now(),
	}
	if s.fetcher == nil {
		s.fetcher = fetch.NewStoreFetcher(db)
	}
	s.opts.Explorer.Logger = s.log
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/search", s.handleSearch)
		r.Get("/entities/{id}", s.handleGetEntity)
		r.Get("/entities/{id}/neighbors", s.handleNeighbors)
		r.Get("/graph/stats", s.handleGraphStats)
		r.Post("/import", s.handleImport)
		r.Get("/explore", s.handleExplore)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/*", spaHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var entities, relationships int
	err := s.db.PingContext(ctx)
	if err == nil {
		entities, err = s.db.CountEntities(ctx)
	}
	if err == nil {
		relationships, err = s.db.CountRelationships(ctx)
	}

	status := "ok"
	if err != nil {
		s.log.Warn("health check", zap.Error(err))
		status = "degraded"
		entities, relationships = 0, 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             status,
		"version":            s.version,
		"uptime":             time.Since(s.started).Seconds(),
		"db":                 err == nil,
		"db_path":            s.db.Path,
		"entities":           entities,
		"relationship_count": relationships,
	})
}

// logRequests logs every request except websocket upgrades, which are logged
// by their sessions.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
