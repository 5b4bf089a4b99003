// Package server exposes the photomatch HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"photomatch/internal/api"
	"photomatch/internal/archive"
	"photomatch/internal/config"
	"photomatch/internal/logging"
	"photomatch/internal/mapping"
	"photomatch/internal/staging"
	"photomatch/internal/task"
)

// maxUploadBytes bounds multipart request memory and disk usage.
const maxUploadBytes = 64 << 20

// Server serves the JSON API over the configured bind address.
type Server struct {
	bind      string
	logger    *slog.Logger
	mappings  *mapping.Store
	engine    *task.Engine
	archives  *archive.Store
	history   *task.History
	uploadDir string
	startedAt time.Time

	listener net.Listener
	server   *http.Server
}

// New assembles the API server. history may be nil when run recording is
// disabled.
func New(cfg *config.Config, mappings *mapping.Store, engine *task.Engine, archives *archive.Store, history *task.History, logger *slog.Logger) *Server {
	srv := &Server{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		logger:    logging.NewComponentLogger(logger, "api-server"),
		mappings:  mappings,
		engine:    engine,
		archives:  archives,
		history:   history,
		uploadDir: filepath.Join(staging.Root(cfg), "uploads"),
		startedAt: time.Now(),
	}

	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler returns the route mux so tests can drive the API without a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mappings", s.handleMappings)
	mux.HandleFunc("/api/mappings/refresh", s.handleMappingRefresh)
	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/tasks/", s.handleTaskPoll)
	mux.HandleFunc("/api/download/", s.handleDownload)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// Start begins serving and shuts the server down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

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

// Addr reports the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, api.FromSnapshot(s.mappings.Current()))
	case http.MethodPost:
		s.handleMappingUpload(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *Server) handleMappingUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("workbook")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing workbook upload field", "")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		s.writeError(w, http.StatusBadRequest, "workbook must be an .xlsx file", "")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read workbook upload", "")
		return
	}

	outcome, err := s.mappings.Ingest(r.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrCorruptPackage), errors.Is(err, mapping.ErrMissingWorksheet):
			s.writeError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, mapping.ErrEmptyMapping):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, api.IngestResponse{
		Updated: outcome.Updated,
		Total:   outcome.Snapshot.RowCount,
	})
}

func (s *Server) handleMappingRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	outcome, err := s.mappings.RefreshFromRemote(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrNoRemoteConfigured):
			s.writeError(w, http.StatusConflict, err.Error(), "")
		case errors.Is(err, mapping.ErrRemoteFetch):
			s.writeError(w, http.StatusBadGateway, err.Error(), api.CodeRemoteFail)
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, api.RefreshResponse{
		Updated: outcome.Updated,
		Total:   outcome.Snapshot.RowCount,
		Message: outcome.Message,
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var inputs []task.Input
	var err error
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		inputs, err = s.receiveUploads(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
	} else {
		var req api.SubmitRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		for _, code := range req.Codes {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			inputs = append(inputs, task.Input{Code: code})
		}
	}

	id, err := s.engine.Submit(r.Context(), inputs)
	if err != nil {
		// Rejected batches never reach the engine, so their spooled
		// uploads must be reclaimed here.
		removeSpooled(inputs)
		switch {
		case errors.Is(err, task.ErrEmptyBatch):
			s.writeError(w, http.StatusBadRequest, err.Error(), api.CodeEmptyBatch)
		case errors.Is(err, task.ErrNoMapping):
			s.writeError(w, http.StatusConflict, err.Error(), api.CodeNoMapping)
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{TaskID: id})
}

// receiveUploads spools every multipart file part to the upload directory and
// returns one input per part.
func (s *Server) receiveUploads(r *http.Request) ([]task.Input, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	var inputs []task.Input
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			part, err := header.Open()
			if err != nil {
				removeSpooled(inputs)
				return nil, fmt.Errorf("open upload %q: %w", header.Filename, err)
			}
			tmp, err := os.CreateTemp(s.uploadDir, "upload-*")
			if err != nil {
				part.Close()
				removeSpooled(inputs)
				return nil, fmt.Errorf("spool upload %q: %w", header.Filename, err)
			}
			_, copyErr := io.Copy(tmp, part)
			part.Close()
			closeErr := tmp.Close()
			if copyErr != nil || closeErr != nil {
				_ = os.Remove(tmp.Name())
				removeSpooled(inputs)
				return nil, fmt.Errorf("spool upload %q failed", header.Filename)
			}
			inputs = append(inputs, task.Input{
				DisplayName: filepath.Base(header.Filename),
				Path:        tmp.Name(),
			})
		}
	}
	return inputs, nil
}

// removeSpooled deletes the temp files behind file inputs that will never be
// processed by a task worker.
func removeSpooled(inputs []task.Input) {
	for _, input := range inputs {
		if input.Path != "" {
			_ = os.Remove(input.Path)
		}
	}
}

func (s *Server) handleTaskPoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "task not found", "")
		return
	}
	state, err := s.engine.Status(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "task not found", "")
		return
	}
	includeResults := r.URL.Query().Get("results") == "1"
	s.writeJSON(w, http.StatusOK, api.FromTaskState(state, includeResults))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/download/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "session not found", "")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "photomatch-"+id+".zip"))
	if err := s.archives.Fetch(r.Context(), id, w); err != nil {
		switch {
		case errors.Is(err, archive.ErrConsumed),
			errors.Is(err, archive.ErrExpired),
			errors.Is(err, archive.ErrNotFound):
			// The store resolves these under its lock before any body
			// byte is written, so the error status can still go out.
			w.Header().Del("Content-Disposition")
			s.writeDownloadError(w, err)
		default:
			// Headers are already sent; a truncated body is all we can
			// signal.
			s.logger.Warn("archive download failed",
				logging.String(logging.FieldSessionID, id),
				logging.Error(err),
			)
		}
	}
}

func (s *Server) writeDownloadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, archive.ErrConsumed):
		s.writeError(w, http.StatusGone, "session already consumed", api.CodeConsumed)
	case errors.Is(err, archive.ErrExpired), errors.Is(err, archive.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "session not found", "")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, api.RunListResponse{Runs: []api.RunSummary{}})
		return
	}
	runs, err := s.history.Recent(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRuns(runs))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	snap := s.mappings.Current()
	status := api.DaemonStatus{
		Running:       true,
		PID:           os.Getpid(),
		MappingTotal:  snap.RowCount,
		MappingHash:   snap.ContentHash,
		ActiveTasks:   s.engine.ActiveCount(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
	if !snap.RefreshedAt.IsZero() {
		status.RefreshedAt = snap.RefreshedAt.Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, code string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code})
}
