package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/djyunz/SBSample/internal/core"
	"github.com/djyunz/SBSample/internal/logging"
	"github.com/djyunz/SBSample/internal/utils"
)

const maxRequestBody = 1 << 20

// DownloadRequest is the body of POST /download and POST /navigate
type DownloadRequest struct {
	URL string `json:"url"`
}

type apiServer struct {
	service  core.DownloadService
	patterns []string
	port     int
	logger   zerolog.Logger
}

// newAPIHandler returns the HTTP control API over service. Navigations whose
// URL matches one of patterns are turned into downloads.
func newAPIHandler(service core.DownloadService, patterns []string, port int, logger zerolog.Logger) http.Handler {
	s := &apiServer{
		service:  service,
		patterns: patterns,
		port:     port,
		logger:   logging.Component(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /download", s.handleDownload)
	mux.HandleFunc("POST /navigate", s.handleNavigate)
	mux.HandleFunc("GET /list", s.handleList)
	mux.HandleFunc("GET /history", s.handleHistory)
	return corsMiddleware(s.withLogger(mux))
}

// withLogger attaches the API logger to each request context
func (s *apiServer) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithContext(r.Context(), s.logger)
		s.logger.Trace().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *apiServer) decodeRequest(w http.ResponseWriter, r *http.Request) (DownloadRequest, bool) {
	var req DownloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.URL == "" {
		http.Error(w, "URL is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"port":   s.port,
	})
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	id, err := s.service.Add(req.URL)
	if err != nil {
		logging.FromContext(logging.WithURL(r.Context(), req.URL)).Debug().Err(err).Msg("download rejected")
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrRejected) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "queued",
		"id":     id,
	})
}

// handleNavigate decides the policy for a browser navigation
func (s *apiServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	if !utils.ShouldIntercept(req.URL, s.patterns) {
		writeJSON(w, http.StatusOK, map[string]string{"policy": "allow"})
		return
	}

	log := logging.FromContext(logging.WithURL(r.Context(), req.URL))
	id, err := s.service.Add(req.URL)
	if err != nil {
		// Hand it back to the browser
		log.Warn().Err(err).Msg("intercepted navigation rejected")
		writeJSON(w, http.StatusOK, map[string]string{"policy": "allow"})
		return
	}

	log.Info().Str("id", id).Msg("navigation intercepted")
	writeJSON(w, http.StatusOK, map[string]string{
		"policy": "cancel",
		"id":     id,
	})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// listen binds 127.0.0.1:port, or the first free port from 8080 when port is 0
func listen(port int) (net.Listener, int, error) {
	if port > 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return nil, 0, err
		}
		return ln, port, nil
	}
	for p := 8080; p < 8180; p++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p)))
		if err == nil {
			return ln, p, nil
		}
	}
	return nil, 0, errors.New("could not find an available port")
}

// serveHTTP serves handler on ln until ctx is done
func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
