// Package server is the HTTP boundary: it sequences the pipeline stages
// per API call and owns no decision logic of its own beyond that sequence.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	Router *chi.Mux
	Host   string
	Port   int
	logger *slog.Logger
}

func New(host string, port int, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(5 * time.Minute))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "funnel")
	})

	return &Server{
		Router: r,
		Host:   host,
		Port:   port,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("host", s.Host), slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf("%s:%d", s.Host, s.Port), s.Router)
}
