// Package server assembles the HTTP read API: router, middleware stack and
// lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/presentation/controllers"
	"github.com/eduatlas/eduatlas/pkg/composables"
)

type Options struct {
	Logger  *logrus.Logger
	Pool    *pgxpool.Pool
	Schools school.Repository
	Address string
}

type HTTPServer struct {
	srv    *http.Server
	logger *logrus.Logger
}

func New(options Options) *HTTPServer {
	r := mux.NewRouter()
	r.Use(
		requestLogger(options.Logger),
		providePool(options.Pool),
	)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	controllers.NewSchoolsController(options.Schools, options.Logger).Register(r)

	return &HTTPServer{
		srv: &http.Server{
			Addr:              options.Address,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: options.Logger,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.WithField("address", s.srv.Addr).Info("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// providePool makes the connection pool reachable through the request context
// so repositories can run outside an explicit transaction.
func providePool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

func requestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithFields(logrus.Fields{
				"request_id": uuid.NewString(),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			entry.WithFields(logrus.Fields{
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Info("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
