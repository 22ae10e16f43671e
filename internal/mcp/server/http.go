// file: internal/mcp/server/http.go
package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/httputils"
	"github.com/dkoosis/toolwire/internal/transport"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP surface of the server. Each POST carries one JSON-RPC message
// and its reply.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Post("/", s.serveRPC)
	r.Post("/mcp", s.serveRPC)
	r.Get("/healthz", s.serveHealth)
	if reg := s.metrics.Registry(); reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	body, err := io.ReadAll(io.LimitReader(r.Body, transport.MaxMessageSize+1))
	if err != nil {
		httputils.WriteError(w, http.StatusBadRequest, "failed to read request body", s.logger)
		return
	}
	if len(body) > transport.MaxMessageSize {
		httputils.WriteError(w, http.StatusRequestEntityTooLarge, "message exceeds size limit", s.logger)
		return
	}

	reply, err := s.HandleMessage(ctx, body)
	if err != nil {
		s.logger.Error("Failed to build reply.", "error", err, "request_id", chimw.GetReqID(r.Context()))
		httputils.WriteError(w, http.StatusInternalServerError, "failed to encode reply", s.logger)
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	httputils.WriteRaw(w, http.StatusOK, reply, s.logger)
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	httputils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"server":  s.opts.Name,
		"version": s.opts.Version,
		"metrics": s.metrics.Snapshot(),
	}, s.logger)
}

// ListenAndServe serves Handler on addr until ctx is cancelled. Keep-alives are disabled,
// so every connection carries exactly one exchange.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.SetKeepAlivesEnabled(false)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving MCP over HTTP.", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown failed")
		}
		return nil
	}
}
