// Package server exposes sync, changed-file listing and file content views
// over HTTP with JSON bodies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/sokinpui/patchsync/internal/engine"
	"github.com/sokinpui/patchsync/internal/report"
	"github.com/sokinpui/patchsync/model"
	"github.com/sokinpui/patchsync/patchsync"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
	requestIDHeader = "X-Request-ID"
)

// Service is the work the HTTP handlers delegate to. *patchsync.App
// implements it.
type Service interface {
	Sync(ctx context.Context, req model.SyncRequest) (*model.SyncReport, error)
	ChangedFiles(ctx context.Context, repoPath, commitID string) ([]model.ChangedFile, error)
	FileContent(ctx context.Context, repoPath, commitID, filePath string) (*model.FileContent, error)
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates a Server. A nil logger discards logs.
func New(svc Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/sync", s.handleSync)
	s.mux.HandleFunc("POST /api/get_diff_files", s.handleDiffFiles)
	s.mux.HandleFunc("POST /api/get_file_content", s.handleFileContent)
	return s
}

// ServeHTTP tags every request with an id and logs its outcome.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.mux.ServeHTTP(rec, r)
	s.logger.Info("request",
		zap.String("request_id", id),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type diffFilesRequest struct {
	RepoPath string `json:"repo_path"`
	CommitID string `json:"commit_id"`
}

type fileContentRequest struct {
	RepoPath string `json:"repo_path"`
	CommitID string `json:"commit_id"`
	FilePath string `json:"file_path"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req model.SyncRequest
	if !s.decode(w, r, syncSchema, &req) {
		return
	}

	rep, err := s.svc.Sync(r.Context(), req)
	if err != nil {
		s.writeError(w, syncStatus(err), err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		html, err := report.HTML(report.Markdown(req, rep))
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, html)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDiffFiles(w http.ResponseWriter, r *http.Request) {
	var req diffFilesRequest
	if !s.decode(w, r, diffFilesSchema, &req) {
		return
	}

	files, err := s.svc.ChangedFiles(r.Context(), req.RepoPath, req.CommitID)
	if err != nil {
		s.writeError(w, lookupStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	var req fileContentRequest
	if !s.decode(w, r, fileContentSchema, &req) {
		return
	}

	content, err := s.svc.FileContent(r.Context(), req.RepoPath, req.CommitID, req.FilePath)
	if err != nil {
		s.writeError(w, lookupStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, content)
}

// decode validates the body against schema and unmarshals it into dst. It
// writes a 400 response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema gojsonschema.JSONLoader, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return false
	}
	if err := validate(schema, body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return false
	}
	return true
}

func syncStatus(err error) int {
	switch engine.KindOf(err) {
	case engine.KindInvalidRequest:
		return http.StatusBadRequest
	case engine.KindNoChanges:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func lookupStatus(err error) int {
	switch {
	case errors.Is(err, patchsync.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, patchsync.ErrFileNotInDiff):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
