package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/quoting"
)

type server struct {
	db     *sql.DB
	quotes *quoting.Service
	logger *zap.Logger
}

func newServer(db *sql.DB, quotes *quoting.Service, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{db: db, quotes: quotes, logger: logger}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/quotes", s.handleListQuotes)
		r.Post("/quotes", s.handleCreateQuote)
		r.Route("/quotes/{quoteID}", func(r chi.Router) {
			r.Get("/", s.handleGetQuote)
			r.Put("/status", s.handleSetQuoteStatus)
			r.Put("/ui-state", s.handleSetQuoteUIState)
			r.Post("/entries", s.handleAddEntry)
			r.Get("/entries", s.handleListEntries)
			r.Delete("/entries/{entryID}", s.handleDeleteEntry)
			r.Post("/calculate", s.handleCalculate)
			r.Get("/calculation", s.handleGetCalculation)
		})
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{categoryName}/products", s.handleListCategoryProducts)
		r.Get("/entries/{entryID}", s.handleGetEntry)
		r.Post("/entries/{entryID}/variations/{optionID}", s.handleSetVariation)
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
