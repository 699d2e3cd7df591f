// Package httpapi serves a read-only view of the running publishers.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-telemetry/internal/metrics"
	"cloudpico-telemetry/internal/publisher"
)

// StatusProvider is anything that can describe itself as a publisher snapshot.
type StatusProvider interface {
	Snapshot() publisher.Snapshot
}

type statusAPI struct {
	providers []StatusProvider
}

func (s *statusAPI) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *statusAPI) handleStatus(w http.ResponseWriter, _ *http.Request) {
	out := make([]publisher.Snapshot, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p.Snapshot())
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *statusAPI) handlePublisher(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	for _, p := range s.providers {
		if snap := p.Snapshot(); snap.Name == name {
			WriteJSON(w, http.StatusOK, snap)
			return
		}
	}
	WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown publisher %q", name))
}

func NewMux(providers ...StatusProvider) *http.ServeMux {
	api := &statusAPI{providers: providers}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.handleHealthz)
	mux.HandleFunc("GET /status", api.handleStatus)
	mux.HandleFunc("GET /status/{name}", api.handlePublisher)

	sources := make([]metrics.Source, 0, len(providers))
	for _, p := range providers {
		sources = append(sources, p)
	}
	mux.Handle("GET /metrics", metrics.Handler(sources...))
	return mux
}

func NewServer(addr string, logger *slog.Logger, providers ...StatusProvider) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(logger, NewMux(providers...)),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv until ctx is done, then shuts it down.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("status endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("status endpoint: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status endpoint: %w", err)
	}
	return nil
}
