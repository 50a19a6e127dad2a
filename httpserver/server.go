// Package httpserver provides the shared HTTP serving shell for Clue-FHE
// binaries: router construction with standard middleware, health and drain
// endpoints, the metrics listener, and graceful shutdown.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/atomic"

	"github.com/geobarrowsa3/Clue-FHE/common"
	"github.com/geobarrowsa3/Clue-FHE/metrics"
)

// RouteRegistrar is implemented by components that mount routes on the
// server's router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config contains the HTTP server parameters.
type Config struct {
	// ListenAddr is the API listen address.
	ListenAddr string

	// MetricsAddr is the metrics listener address. Empty disables metrics.
	MetricsAddr string

	// CORSOrigins lists allowed browser origins for the gateway API.
	CORSOrigins []string

	// EnablePprof mounts the pprof debugging API under /debug.
	EnablePprof bool

	// Log is the structured logger for server operations.
	Log *slog.Logger

	// DrainDuration is how long the server stays up after being marked not
	// ready, so load balancers can observe the change.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests on
	// shutdown.
	GracefulShutdownDuration time.Duration

	// ReadTimeout and WriteTimeout bound request and response transfer.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the serving shell around the gateway handlers.
type Server struct {
	cfg     *Config
	log     *slog.Logger
	isReady atomic.Bool

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
}

// New creates a Server and mounts the given registrars' routes.
func New(cfg *Config, routeRegistrars ...RouteRegistrar) (*Server, error) {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.DrainDuration == 0 {
		cfg.DrainDuration = 5 * time.Second
	}
	if cfg.GracefulShutdownDuration == 0 {
		cfg.GracefulShutdownDuration = 10 * time.Second
	}

	srv := &Server{
		cfg: cfg,
		log: cfg.Log.With("component", "httpserver"),
	}

	if cfg.MetricsAddr != "" {
		metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
		srv.metricsSrv = metricsSrv
	}

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.router(routeRegistrars),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	srv.isReady.Store(true)

	return srv, nil
}

func (s *Server) router(routeRegistrars []RouteRegistrar) http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	if len(s.cfg.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	for _, registrar := range routeRegistrars {
		registrar.RegisterRoutes(mux)
	}

	mux.With(s.httpLogger).Get("/livez", s.handleLiveness)
	mux.With(s.httpLogger).Get("/readyz", s.handleReadiness)
	mux.With(s.httpLogger).Get("/drain", s.handleDrain)
	mux.With(s.httpLogger).Get("/undrain", s.handleUndrain)

	if s.cfg.EnablePprof {
		s.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}

	return mux
}

func (s *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Swap(false) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}
	s.log.Info("server marked as not ready")

	go func() {
		time.Sleep(s.cfg.DrainDuration)
		s.log.Info("drain period completed")
	}()

	writeStatus(w, http.StatusOK, "draining")
}

func (s *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if s.isReady.Swap(true) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}
	s.log.Info("server marked as ready")
	writeStatus(w, http.StatusOK, "ready")
}

// RunInBackground starts the API and metrics listeners in goroutines.
func (s *Server) RunInBackground() {
	if s.metricsSrv != nil {
		go func() {
			s.log.Info("starting metrics server", "metricsAddress", s.cfg.MetricsAddr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		s.log.Info("starting HTTP server", "listenAddress", s.cfg.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("graceful HTTP server shutdown failed", "err", err)
	} else {
		s.log.Info("HTTP server gracefully stopped")
	}

	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
		defer cancel()
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			s.log.Error("graceful metrics server shutdown failed", "err", err)
		} else {
			s.log.Info("metrics server gracefully stopped")
		}
	}
}
