// Package server exposes one Session over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/docs"
	"github.com/petasbytes/paper-agent/internal/runner"
	"github.com/petasbytes/paper-agent/internal/session"
	"github.com/petasbytes/paper-agent/internal/uploads"
)

// DefaultMaxUploadBytes caps one multipart upload request.
const DefaultMaxUploadBytes = 64 << 20

// Server serialises every request that touches the session.
type Server struct {
	mu       sync.Mutex
	sess     *session.Session
	gatherer prometheus.Gatherer
	log      *zap.Logger

	MaxUploadBytes int64
}

// New wraps sess. A nil gatherer disables /metrics.
func New(sess *session.Session, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		sess:           sess,
		gatherer:       gatherer,
		log:            log.Named("server"),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/documents", s.handleListDocuments)
	r.Post("/documents", s.handleUpload)
	r.Post("/query", s.handleQuery)
	r.Get("/conversation", s.handleConversation)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadErrorResponse struct {
	Error string `json:"error"`
	session.UploadReport
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	s.mu.Lock()
	answer, err := s.sess.Ask(r.Context(), req.Query)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart upload: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files[]"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no files in upload"})
		return
	}

	files := make([]uploads.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		files = append(files, uploads.File{Name: fh.Filename, Data: data})
	}

	s.mu.Lock()
	report, err := s.sess.Upload(r.Context(), files)
	s.mu.Unlock()
	if errors.Is(err, session.ErrIndexStale) {
		// The documents are registered; only the tool index lags behind.
		s.log.Warn("upload indexed without tool index", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, uploadErrorResponse{Error: err.Error(), UploadReport: report})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := s.sess.Documents()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"documents": names})
}

func (s *Server) handleConversation(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	turns := s.sess.Conversation()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		aee *runner.AgentExecutionError
		dle *docs.DocumentLoadError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoDocuments):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoQuery):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrIndexStale):
		status = http.StatusBadGateway
	case errors.As(err, &aee):
		status = http.StatusBadGateway
	case errors.As(err, &dle):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
