// Package api serves computed per-capita tables and on-demand population
// estimates over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/capital-stats/percapita/internal/model"
	"github.com/capital-stats/percapita/internal/store"
)

// Dataset is the state the API answers from.
type Dataset struct {
	RunID      string
	Rates      *model.PerCapitaTable
	Names      map[string]string
	Population map[string]model.RawPopulation
	MinYear    int
	MaxYear    int
}

// Server holds the current dataset and an optional run store.
type Server struct {
	mu    sync.RWMutex
	data  *Dataset
	store store.Store
}

// NewServer creates a Server. st may be nil, in which case /runs is not
// mounted.
func NewServer(data *Dataset, st store.Store) *Server {
	return &Server{data: data, store: st}
}

// SetDataset swaps the served dataset.
func (s *Server) SetDataset(d *Dataset) {
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
}

func (s *Server) dataset() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// NewRouter builds the HTTP handler for s.
func NewRouter(s *Server, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/rates", func(rr chi.Router) {
		rr.Get("/", s.listRates)
		rr.Get("/{region}", s.getRates)
	})
	r.Get("/population/{region}", s.getPopulation)

	if s.store != nil {
		r.Get("/runs", s.listRuns)
	}

	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
