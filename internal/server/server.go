// internal/server/server.go

package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse"
	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
	"github.com/cognicore/commentpulse/pkg/pulse/config"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
)

// Insights is the part of pulse.Service the HTTP layer needs.
type Insights interface {
	Analyze(ctx context.Context, comments []analytics.Comment) (*pulse.Report, error)
	Predict(ctx context.Context, texts []string) ([]pulse.Prediction, error)
	PredictWithTimestamps(ctx context.Context, comments []analytics.Comment) ([]pulse.TimedPrediction, error)
	WordCloud(ctx context.Context, texts []string, limit int) ([]analytics.WordWeight, error)
	GetReport(ctx context.Context, id string) (*analytics.Result, error)
	ListReports(ctx context.Context, limit int) ([]store.ReportSummary, error)
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, svc Insights, logger zerolog.Logger) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	if cfg.WriteTimeout > 0 {
		router.Use(middleware.Timeout(cfg.WriteTimeout))
	}

	// The browser extension popup calls the API cross-origin.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{ReportIDHeader},
		MaxAge:         300,
	}))

	h := &handler{svc: svc, logger: logger, maxBody: cfg.MaxBodyBytes}

	router.Get("/", h.welcome)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	router.Post("/predict", h.predict)
	router.Post("/predict_with_timestamps", h.predictWithTimestamps)
	router.Post("/insights", h.insights)

	// Chart data
	router.Post("/chart_data", h.chartData)
	router.Post("/trend_data", h.trendData)
	router.Post("/wordcloud_data", h.wordCloudData)

	router.Route("/reports", func(r chi.Router) {
		r.Get("/", h.listReports)
		r.Get("/{id}", h.getReport)
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
