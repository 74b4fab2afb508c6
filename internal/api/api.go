// Package api exposes ranking and community data management over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/logger"
	"github.com/spigell/community-ranker/internal/payload"
	"github.com/spigell/community-ranker/internal/ranking"
	"github.com/spigell/community-ranker/internal/sheet"
	"github.com/spigell/community-ranker/internal/storage"
)

const (
	maxPayloadSize  = 1 << 20
	maxWorkbookSize = 32 << 20
	logPreview      = 300
)

// Handler serves the ranking API.
type Handler struct {
	Schema *community.Schema
	Parser *payload.Parser
	Loader *sheet.Loader
	Engine *ranking.Engine
	// Source provides community data for ranking requests.
	Source sheet.Source
	// Storage and ObjectKey receive validated community data. Uploads are
	// rejected when Storage is nil.
	Storage   storage.Storage
	ObjectKey string
	Logger    *zap.Logger
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Post("/rank", h.Rank)
	r.Post("/community-data/validate", h.ValidateCommunityData)
	r.Put("/community-data", h.UpdateCommunityData)
}

// Router builds the full middleware stack around the API routes.
func (h *Handler) Router(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) baseLogger() *zap.Logger {
	return logger.WithFields(h.Logger)
}

// requestLogger attaches a request scoped logger and logs every response.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logger.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)

		log := h.baseLogger().With(zap.String(logger.FieldRequestID, id))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logger.IntoContext(r.Context(), log)))

		log.Info("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
		)
	})
}
