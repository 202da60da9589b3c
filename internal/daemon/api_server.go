package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mycinema/internal/config"
	"mycinema/internal/logging"
	"mycinema/internal/runner"
	"mycinema/internal/services"
)

const (
	maxRequestBody = 1 << 20
	maxImportBody  = 256 << 20
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, gatherer prometheus.Gatherer, logger *slog.Logger) *apiServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/lists", authMiddleware(token, srv.handleLists))
	mux.HandleFunc("/api/sync", authMiddleware(token, srv.handleSync))
	mux.HandleFunc("/api/refresh-links", authMiddleware(token, srv.handleRefresh))
	mux.HandleFunc("/api/update-metadata", authMiddleware(token, srv.handleUpdateMetadata))
	mux.HandleFunc("/api/find-links", authMiddleware(token, srv.handleFindLinks))
	mux.HandleFunc("/api/catalog", authMiddleware(token, srv.handleCatalog))
	mux.HandleFunc("/api/catalog/", authMiddleware(token, srv.handleCatalogItem))
	mux.HandleFunc("/api/blacklist", authMiddleware(token, srv.handleBlacklist))
	mux.HandleFunc("/api/history", authMiddleware(token, srv.handleHistory))
	mux.HandleFunc("/api/export", authMiddleware(token, srv.handleExport))
	mux.HandleFunc("/api/import", authMiddleware(token, srv.handleImport))
	mux.HandleFunc("/api/logs", authMiddleware(token, srv.handleLogs))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv.server = &http.Server{
		Handler:           metricsMiddleware(d.metrics, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// decodeBody reads a JSON request body of at most limit bytes into out.
func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, limit int64, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeFailure maps error classes onto HTTP status codes.
func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrRunInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func requireMethod(s *apiServer, w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, method := range methods {
		if r.Method == method {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
