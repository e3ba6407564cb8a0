// Package httpapi serves the local status endpoints of a running client:
// liveness, sync status, Prometheus metrics, and the bridge that background
// drain processes use to deliver change events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/client/services"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

type StatusSource interface {
	Status(ctx context.Context) (services.Status, error)
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter builds the handler tree. status may be nil, in which case
// /status is not served.
func NewRouter(bus *notify.Bus, status StatusSource, log logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, liveResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Service:   "snapkeeper",
		})
	})

	if status != nil {
		r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
			st, err := status.Status(req.Context())
			if err != nil {
				log.Error(req.Context(), "status failed", "err", err)
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, st)
		})
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/bridge", notify.BridgeHandler(bus, log))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{address: address, handler: handler, logger: logger.With("component", "httpapi")}
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.WithoutCancel(ctx), "stopping status server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting status server", "address", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
